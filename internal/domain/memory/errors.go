package memory

import "errors"

var (
	// ErrConfiguration 无效的分块/检索参数，在任何 I/O 之前拒绝
	ErrConfiguration = errors.New("invalid configuration")
	// ErrEmbeddingUnavailable 向量化服务不可达（瞬时故障，可重试）
	ErrEmbeddingUnavailable = errors.New("embedding endpoint unavailable")
	// ErrEmbeddingProtocol 向量化服务返回格式错误或数量不匹配（永久故障，不重试）
	ErrEmbeddingProtocol = errors.New("embedding protocol error")
	// ErrDimensionMismatch 向量维度与配置不一致，写入被拒绝
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidInput 调用方参数不合法（缺失字段、非法角色等）
	ErrInvalidInput = errors.New("invalid params")
	// ErrStorage 数据库层故障，按原样向上传递
	ErrStorage = errors.New("storage error")
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("not found")
)

// ErrorKind 返回错误的机器可读类别，用于 JSON-RPC / REST 错误负载
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, ErrEmbeddingProtocol):
		return "embedding_protocol_error"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_params"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "internal_error"
	}
}

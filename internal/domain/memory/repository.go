package memory

import "context"

// MessageRepository 消息仓库接口
type MessageRepository interface {
	// SaveMessage 保存消息；ID 为空时由仓库生成
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage 按 ID 获取消息；不存在时返回 (nil, nil)
	GetMessage(ctx context.Context, id string) (*Message, error)

	// GetSessionMessages 按会话获取消息，按写入时间升序
	GetSessionMessages(ctx context.Context, sessionID string) ([]*Message, error)

	// ListInactiveSessions 列出最后一条消息早于 cutoff（Unix 毫秒）的会话
	ListInactiveSessions(ctx context.Context, cutoff int64) ([]string, error)

	// DeleteSessionMessages 删除会话的所有消息，返回删除行数
	DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error)
}

// ChunkRepository 上下文片段仓库接口
type ChunkRepository interface {
	// SaveChunk 保存单个片段；向量维度不符时返回 ErrDimensionMismatch
	SaveChunk(ctx context.Context, chunk *Chunk) error

	// SaveChunks 事务内批量保存片段
	SaveChunks(ctx context.Context, chunks []*Chunk) error

	// GetChunk 按 ID 获取片段；不存在时返回 (nil, nil)
	GetChunk(ctx context.Context, id string) (*Chunk, error)

	// GetChunksBySession 按会话获取所有片段（含向量），按写入时间升序
	GetChunksBySession(ctx context.Context, sessionID string) ([]*Chunk, error)

	// GetRecentChunks 按写入时间降序获取最近片段
	// limit <= 0 时返回 ErrConfiguration
	GetRecentChunks(ctx context.Context, sessionID string, limit int) ([]*Chunk, error)

	// DeleteChunksBySession 删除会话的所有片段，返回删除行数
	DeleteChunksBySession(ctx context.Context, sessionID string) (int64, error)
}

// Package memory 定义对话记忆领域模型
// 核心实体：Message（对话消息）、Chunk（上下文片段）、SearchResult（检索结果）
package memory

// 消息角色常量
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole 检查角色是否合法
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Message 一轮对话消息
// 写入后不可变，按 SessionID 分组；Session 在首条消息写入时隐式创建
type Message struct {
	ID        string `json:"id"`         // UUID，持久代理键
	SessionID string `json:"session_id"` // 会话 ID（不透明字符串）
	UserID    string `json:"user_id"`    // 用户 ID
	Role      string `json:"role"`       // user / assistant
	Content   string `json:"content"`    // 消息内容
	CreatedAt int64  `json:"created_at"` // 写入时间（Unix 毫秒）
}

// Chunk 上下文片段
// 消息内容的连续切片，携带向量和位置元数据
// 向量一旦写入视为不可变，重新向量化需要删除后重建
type Chunk struct {
	ID          string    `json:"id"`          // UUID，同时作为向量索引的 point_id
	SessionID   string    `json:"session_id"`  // 会话 ID
	MessageID   string    `json:"message_id"`  // 来源消息 ID（外键）
	ChunkIndex  int       `json:"chunk_index"` // 在同一消息内严格递增、无空洞
	Content     string    `json:"content"`     // 片段内容
	Embedding   []float32 `json:"embedding"`   // 定长向量，维度由配置决定
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	CreatedAt   int64     `json:"created_at"` // 写入时间（Unix 毫秒）
}

// HasEmbedding 检查片段是否已持有向量
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ContentPreview 获取片段内容预览（前 200 字符）
func (c *Chunk) ContentPreview() string {
	runes := []rune(c.Content)
	if len(runes) <= 200 {
		return c.Content
	}
	return string(runes[:200]) + "..."
}

// SearchResult 检索结果（临时对象，不持久化）
// Score 为余弦相似度，越大越相关，同一会话内单调可比
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

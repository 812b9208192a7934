package events

import "time"

// MessageIndexedEvent 消息完成分块、向量化并持久化后触发
type MessageIndexedEvent struct {
	// SessionID 会话 ID
	SessionID string
	// MessageID 消息 ID
	MessageID string
	// ChunkCount 本次产生的片段数
	ChunkCount int
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *MessageIndexedEvent) Type() EventType {
	return MessageIndexed
}

// Timestamp 实现 Event 接口
func (e *MessageIndexedEvent) Timestamp() time.Time {
	return e.EventTime
}

// IngestFileEvent 监听目录中的文件被发现并进入管道时触发
type IngestFileEvent struct {
	// SessionID 派生的会话 ID（file:<文件名>）
	SessionID string
	// FilePath 文件完整路径
	FilePath string
	// FileSize 文件大小（字节）
	FileSize int64
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *IngestFileEvent) Type() EventType {
	return IngestFileDetected
}

// Timestamp 实现 Event 接口
func (e *IngestFileEvent) Timestamp() time.Time {
	return e.EventTime
}

// RetentionSweptEvent 保留期清理完成后触发
type RetentionSweptEvent struct {
	// Sessions 被清理的会话 ID 列表
	Sessions []string
	// MessagesDeleted 删除的消息行数
	MessagesDeleted int64
	// ChunksDeleted 删除的片段行数
	ChunksDeleted int64
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *RetentionSweptEvent) Type() EventType {
	return RetentionSwept
}

// Timestamp 实现 Event 接口
func (e *RetentionSweptEvent) Timestamp() time.Time {
	return e.EventTime
}

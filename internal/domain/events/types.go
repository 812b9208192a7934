// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 记忆管道相关事件类型
const (
	// MessageIndexed 消息完成分块与向量化
	MessageIndexed EventType = "memory.message.indexed"
	// IngestFileDetected 监听目录发现新文件
	IngestFileDetected EventType = "memory.ingest.file"
	// RetentionSwept 保留期清理完成
	RetentionSwept EventType = "memory.retention.swept"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}

package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,            // 提供数据库连接
	NewMessageRepository, // 消息仓储
	NewChunkRepository,   // 上下文片段仓储
)

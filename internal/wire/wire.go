//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/samlazrak/LocalContextMCP/internal/application"
	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/embedding"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces"
)

// InitializeAll 初始化所有服务（HTTP + MCP）
func InitializeAll() (*App, error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 接口绑定：application.Embedder -> infrastructure embedding 客户端
		wire.Bind(
			new(appMemory.Embedder),
			new(*embedding.Client),
		),
		// 向量索引按配置选择后端（sqlite 时为 nil，走精确余弦扫描）
		ProvideVectorIndex,
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil
}

package wire

import (
	"context"
	"database/sql"

	"log/slog"

	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/application/tools"
	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	applog "github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/watcher"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/websocket"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	wsHub      *websocket.Hub
	notifier   *websocket.Notifier
	registry   *tools.Registry
	toolsCfg   *config.ToolsConfig
	sweeper    *appMemory.RetentionSweeper
	db         *sql.DB
	logger     *slog.Logger

	// 文件监听相关
	eventBus      events.EventBus
	ingestWatcher *watcher.IngestWatcher
	ingestHandler *appMemory.IngestHandler

	// 事件订阅的取消函数，Stop 时调用
	unsubscribes []func()
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	notifier *websocket.Notifier,
	registry *tools.Registry,
	toolsCfg *config.ToolsConfig,
	sweeper *appMemory.RetentionSweeper,
	eventBus events.EventBus,
	ingestWatcher *watcher.IngestWatcher,
	ingestHandler *appMemory.IngestHandler,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:    httpServer,
		MCPServer:     mcpServer,
		wsHub:         wsHub,
		notifier:      notifier,
		registry:      registry,
		toolsCfg:      toolsCfg,
		sweeper:       sweeper,
		eventBus:      eventBus,
		ingestWatcher: ingestWatcher,
		ingestHandler: ingestHandler,
		db:            db,
		logger:        applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting LocalContextMCP application")

	// 注册外部工具（清单未配置时跳过）
	if err := a.registerExternalTools(); err != nil {
		return err
	}

	// 注册事件订阅者
	a.setupEventSubscribers()

	// 启动文件摄取监听器（未配置摄取目录时为 nil）
	if a.ingestWatcher != nil {
		if err := a.ingestWatcher.Start(); err != nil {
			a.logger.Error("Failed to start ingest watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Ingest watcher started")
		}
	}

	// 启动保留期清理器（保留期未配置时内部自行跳过）
	a.sweeper.Start(context.Background())

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("HTTP server exited",
				"error", err,
			)
		}
	}()

	a.logger.Info("LocalContextMCP application started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	return nil
}

// registerExternalTools 按清单注册外部工具
func (a *App) registerExternalTools() error {
	if a.toolsCfg == nil || a.toolsCfg.ManifestPath == "" {
		return nil
	}

	manifest, err := config.LoadToolsManifest(a.toolsCfg.ManifestPath)
	if err != nil {
		return err
	}
	if err := tools.RegisterExternalTools(a.registry, manifest, a.toolsCfg); err != nil {
		return err
	}

	a.logger.Info("External tools registered",
		"manifest", a.toolsCfg.ManifestPath,
		"count", len(manifest.Tools),
	)
	return nil
}

// setupEventSubscribers 注册事件订阅者
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	// WebSocket 推送订阅入库、摄取、清理事件
	if a.notifier != nil {
		a.unsubscribes = append(a.unsubscribes, a.notifier.Register(a.eventBus))
	}

	// 文件摄取处理器订阅文件事件
	if a.ingestHandler != nil {
		a.unsubscribes = append(a.unsubscribes, a.ingestHandler.Register(a.eventBus))
	}
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping LocalContextMCP application")

	// 停止文件摄取监听器
	if a.ingestWatcher != nil {
		a.ingestWatcher.Stop()
		a.logger.Info("Ingest watcher stopped")
	}

	// 停止保留期清理器
	a.sweeper.Stop()

	// 取消事件订阅并关闭事件总线
	for _, unsubscribe := range a.unsubscribes {
		unsubscribe()
	}
	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	// 停止 HTTP 服务器
	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	// 停止 MCP 服务器
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database",
				"error", err,
			)
		}
	}

	a.logger.Info("LocalContextMCP application stopped")
	return nil
}

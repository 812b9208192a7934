package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/http/handler"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/http/middleware"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/jsonrpc"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/mcp"

	_ "github.com/samlazrak/LocalContextMCP/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	serverCfg *config.ServerConfig,
	memoryHandler *handler.MemoryHandler,
	healthHandler *handler.HealthHandler,
	wsHandler *handler.WSHandler,
	dispatcher *jsonrpc.Dispatcher,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := gin.Default()

	logger := log.NewModuleLogger("http", "server")

	// 非 UTF-8 请求体入库前统一转码
	router.Use(middleware.EnsureUTF8Body())

	// 注册路由
	router.POST("/message", memoryHandler.StoreMessage)
	router.POST("/context_chunk", memoryHandler.StoreChunk)
	router.GET("/recent_chunks", memoryHandler.RecentChunks)
	router.POST("/semantic_search", memoryHandler.SemanticSearch)

	// JSON-RPC 端点
	router.POST("/rpc", rpcHandler(dispatcher))

	// WebSocket 推送
	router.GET("/ws", wsHandler.Subscribe)

	// 健康检查
	router.GET("/health", healthHandler.Health)

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router: router,
		addr:   serverCfg.Addr(),
		logger: logger,
	}
}

// rpcHandler 将 JSON-RPC 分发器挂接到 gin
// 分发器总是返回恰好一个响应，HTTP 状态码恒为 200
func rpcHandler(dispatcher *jsonrpc.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			body = nil
		}
		resp := dispatcher.Handle(c.Request.Context(), body)
		c.JSON(http.StatusOK, resp)
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"addr", s.addr,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

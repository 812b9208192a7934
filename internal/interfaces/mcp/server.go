package mcp

import (
	"net/http"

	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer MCP 服务器
type MCPServer struct {
	server   *mcp.Server
	handler  http.Handler
	pipeline *appMemory.Pipeline
	search   *appMemory.SearchService
}

// NewServer 创建 MCP 服务器
func NewServer(pipeline *appMemory.Pipeline, search *appMemory.SearchService) *MCPServer {
	// 创建 MCP 服务器实例
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "localcontext-mcp",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	// 创建服务器实例（用于闭包捕获依赖）
	mcpServer := &MCPServer{
		server:   server,
		pipeline: pipeline,
		search:   search,
	}

	// 注册工具：store_message
	mcp.AddTool(server, &mcp.Tool{
		Name: "store_message",
		Description: `Store a conversation message into session memory. The content is chunked, embedded, and persisted for later semantic retrieval.

Parameters:
- session_id (string, required): Session the message belongs to
- user_id (string, optional): Author of the message
- role (string, required): One of "user", "assistant"
- content (string, required): Message text

Returns: message ID and the number of chunks persisted.`,
	}, mcpServer.storeMessageTool)

	// 注册工具：recent_chunks
	mcp.AddTool(server, &mcp.Tool{
		Name: "recent_chunks",
		Description: `Fetch the most recently stored context chunks of a session, newest first.

Parameters:
- session_id (string, required): Session to read from
- limit (int, optional): Maximum number of chunks, defaults to 10

Returns: chunk list with content, offsets, and timestamps.`,
	}, mcpServer.recentChunksTool)

	// 注册工具：semantic_search
	mcp.AddTool(server, &mcp.Tool{
		Name: "semantic_search",
		Description: `Search stored context of a session by meaning rather than keywords.

Use this tool when you need to:
- Recall earlier parts of a long conversation
- Find how a topic, error, or decision was discussed before in this session

Parameters:
- session_id (string, required): Session to search within; results never cross sessions
- query (string, required): Natural language description of what you're looking for
- top_k (int, optional): Maximum number of results, defaults to 5

Returns: matching chunks ordered by cosine similarity, each with a score in [-1, 1].`,
	}, mcpServer.semanticSearchTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Start 启动服务器（HTTP/SSE 模式）
// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
func (s *MCPServer) Start() error {
	return nil
}

// Stop 停止服务器
func (s *MCPServer) Stop() error {
	return nil
}

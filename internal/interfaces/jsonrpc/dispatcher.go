// Package jsonrpc 实现 JSON-RPC 2.0 方法分发
// 内置方法直连存储与检索服务，未知方法按名称路由到工具注册表
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"log/slog"

	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/application/tools"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// JSON-RPC 2.0 错误码
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Request JSON-RPC 2.0 请求
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// Response JSON-RPC 2.0 响应
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// ErrorObject JSON-RPC 错误对象
// Data 携带机器可读的错误类别
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Dispatcher 方法分发器
type Dispatcher struct {
	pipeline *appMemory.Pipeline
	search   *appMemory.SearchService
	registry *tools.Registry
	logger   *slog.Logger
}

// NewDispatcher 创建分发器
func NewDispatcher(pipeline *appMemory.Pipeline, search *appMemory.SearchService, registry *tools.Registry) *Dispatcher {
	return &Dispatcher{
		pipeline: pipeline,
		search:   search,
		registry: registry,
		logger:   log.NewModuleLogger("jsonrpc", "dispatcher"),
	}
}

// Handle 处理一次请求并返回恰好一个响应
// 请求体不可解析时返回 id 为 null 的 ParseError 响应
func (d *Dispatcher) Handle(ctx context.Context, body []byte) *Response {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(json.RawMessage("null"), CodeParseError, "parse error", nil)
	}

	id := req.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(id, CodeInvalidRequest, "jsonrpc must be \"2.0\"", nil)
	}
	if req.Method == "" {
		return errorResponse(id, CodeInvalidRequest, "method is required", nil)
	}

	result, err := d.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		d.logger.Warn("Method failed",
			"method", req.Method,
			"error", err,
		)
		return toErrorResponse(id, err)
	}

	return &Response{JSONRPC: "2.0", Result: result, ID: id}
}

// dispatch 按方法名路由
func (d *Dispatcher) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "store_message":
		return d.storeMessage(ctx, params)
	case "store_chunk":
		return d.storeChunk(ctx, params)
	case "recent_chunks":
		return d.recentChunks(ctx, params)
	case "semantic_search":
		return d.semanticSearch(ctx, params)
	case "tools/list":
		return d.registry.List(), nil
	case "tools/call":
		return d.toolsCall(ctx, params)
	default:
		// 未知方法先查工具注册表，再报 MethodNotFound
		return d.registry.Invoke(ctx, method, params)
	}
}

type storeMessageParams struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

func (d *Dispatcher) storeMessage(ctx context.Context, params json.RawMessage) (any, error) {
	var p storeMessageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	result, err := d.pipeline.StoreMessage(ctx, p.SessionID, p.UserID, p.Role, p.Content)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message_id":  result.Message.ID,
		"chunk_count": result.ChunkCount,
	}, nil
}

type storeChunkParams struct {
	SessionID   string    `json:"session_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding"`
	MessageID   string    `json:"message_id"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
}

func (d *Dispatcher) storeChunk(ctx context.Context, params json.RawMessage) (any, error) {
	var p storeChunkParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	chunkID, err := d.pipeline.StoreChunk(ctx, &domainMemory.Chunk{
		SessionID:   p.SessionID,
		ChunkIndex:  p.ChunkIndex,
		Content:     p.Content,
		Embedding:   p.Embedding,
		MessageID:   p.MessageID,
		StartOffset: p.StartOffset,
		EndOffset:   p.EndOffset,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"chunk_id": chunkID}, nil
}

type recentChunksParams struct {
	SessionID string `json:"session_id"`
	Limit     *int   `json:"limit"`
}

func (d *Dispatcher) recentChunks(ctx context.Context, params json.RawMessage) (any, error) {
	var p recentChunksParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	limit := 10
	if p.Limit != nil {
		limit = *p.Limit
	}

	chunks, err := d.pipeline.RecentChunks(ctx, p.SessionID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"chunks": chunks,
		"count":  len(chunks),
	}, nil
}

type semanticSearchParams struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	TopK      *int   `json:"top_k"`
}

func (d *Dispatcher) semanticSearch(ctx context.Context, params json.RawMessage) (any, error) {
	var p semanticSearchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	topK := 5
	if p.TopK != nil {
		topK = *p.TopK
	}

	results, err := d.search.Search(ctx, p.SessionID, p.Query, topK)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"results": results,
		"count":   len(results),
	}, nil
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) toolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p toolsCallParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domainMemory.ErrInvalidInput)
	}
	return d.registry.Invoke(ctx, p.Name, p.Arguments)
}

// decodeParams 解析参数对象，非法 JSON 报 InvalidParams
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("%w: %v", domainMemory.ErrInvalidInput, err)
	}
	return nil
}

// toErrorResponse 将业务错误映射为 JSON-RPC 错误对象
func toErrorResponse(id json.RawMessage, err error) *Response {
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		return errorResponse(id, CodeMethodNotFound, err.Error(), "method_not_found")
	case errors.Is(err, domainMemory.ErrInvalidInput),
		errors.Is(err, domainMemory.ErrConfiguration),
		errors.Is(err, domainMemory.ErrDimensionMismatch):
		return errorResponse(id, CodeInvalidParams, err.Error(), domainMemory.ErrorKind(err))
	case errors.Is(err, domainMemory.ErrStorage),
		errors.Is(err, domainMemory.ErrEmbeddingProtocol):
		// 存储与协议故障不透出内部细节
		return errorResponse(id, CodeServerError, "backend failure, see server logs", domainMemory.ErrorKind(err))
	default:
		// 其余错误（含外部工具的报错）原样转发
		return errorResponse(id, CodeServerError, err.Error(), domainMemory.ErrorKind(err))
	}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error: &ErrorObject{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

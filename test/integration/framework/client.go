//go:build integration
// +build integration

// APIClient 基于 resty 封装的 HTTP 客户端，直接复用业务结构体
package framework

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
)

// APIClient 测试用 HTTP 客户端
type APIClient struct {
	client  *resty.Client
	baseURL string
}

// NewAPIClient 创建测试用 HTTP 客户端
func NewAPIClient(baseURL string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &APIClient{
		client:  client,
		baseURL: baseURL,
	}
}

// APIResponse 通用 API 响应（复用 response.Response 的 JSON 结构）
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// StoreMessageData POST /message 响应 data
type StoreMessageData struct {
	MessageID  string `json:"message_id"`
	ChunkCount int    `json:"chunk_count"`
}

// ChunksData GET /recent_chunks 响应 data
type ChunksData struct {
	Chunks []*domainMemory.Chunk `json:"chunks"`
	Count  int                   `json:"count"`
}

// SearchData POST /semantic_search 响应 data
type SearchData struct {
	Results []*domainMemory.SearchResult `json:"results"`
	Count   int                          `json:"count"`
}

// HealthData GET /health 响应
type HealthData struct {
	Status     string                     `json:"status"`
	Components map[string]json.RawMessage `json:"components"`
}

// RPCResponse JSON-RPC 响应
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// RPCError JSON-RPC 错误对象
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// StoreMessage 存储消息
func (c *APIClient) StoreMessage(sessionID, role, content string) (*StoreMessageData, error) {
	var result APIResponse[StoreMessageData]
	resp, err := c.client.R().
		SetBody(map[string]string{
			"session_id": sessionID,
			"role":       role,
			"content":    content,
		}).
		SetResult(&result).
		Post("/message")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("store message failed: %s: %s", resp.Status(), resp.String())
	}
	return &result.Data, nil
}

// RecentChunks 获取最近片段
func (c *APIClient) RecentChunks(sessionID string, limit int) (*ChunksData, error) {
	var result APIResponse[ChunksData]
	resp, err := c.client.R().
		SetQueryParam("session_id", sessionID).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&result).
		Get("/recent_chunks")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("recent chunks failed: %s: %s", resp.Status(), resp.String())
	}
	return &result.Data, nil
}

// SemanticSearch 语义检索
func (c *APIClient) SemanticSearch(sessionID, query string, topK int) (*SearchData, error) {
	var result APIResponse[SearchData]
	resp, err := c.client.R().
		SetBody(map[string]any{
			"session_id": sessionID,
			"query":      query,
			"top_k":      topK,
		}).
		SetResult(&result).
		Post("/semantic_search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("semantic search failed: %s: %s", resp.Status(), resp.String())
	}
	return &result.Data, nil
}

// Health 健康检查
func (c *APIClient) Health() (*HealthData, error) {
	var result HealthData
	resp, err := c.client.R().
		SetResult(&result).
		Get("/health")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health check failed: %s", resp.Status())
	}
	return &result, nil
}

// RPC 发送原始 JSON-RPC 请求
func (c *APIClient) RPC(body string) (*RPCResponse, error) {
	var result RPCResponse
	resp, err := c.client.R().
		SetBody([]byte(body)).
		SetResult(&result).
		Post("/rpc")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rpc failed: %s: %s", resp.Status(), resp.String())
	}
	return &result, nil
}

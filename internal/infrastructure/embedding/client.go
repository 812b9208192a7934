// Package embedding 提供向量化服务客户端
// 对接 OpenAI 兼容的 /v1/embeddings 端点（LM Studio、Ollama 等）
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"

	"log/slog"
)

// OpenAI embeddings API 批量限制：每次最多 2048 个文本
const maxBatchSize = 2048

// Client Embedding API 客户端
// 纯 I/O 适配器：瞬时故障内部重试，协议错误立即上抛，本层不做缓存
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	dimension    int
	maxRetries   int
	retryBackoff time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient 创建 Embedding 客户端
func NewClient(cfg *config.EmbeddingConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		dimension:    cfg.Dimension,
		maxRetries:   retries,
		retryBackoff: backoff,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.NewModuleLogger("embedding", "client"),
	}
}

// buildEmbeddingURL 构建 Embedding API URL
// 支持多种输入格式，智能拼接 /v1/embeddings 路径
func buildEmbeddingURL(baseURL string) string {
	if strings.Contains(baseURL, "/v1/embeddings") {
		return baseURL
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/embeddings"
	}
	return fmt.Sprintf("%s/v1/embeddings", baseURL)
}

// EmbeddingRequest Embedding 请求
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse Embedding 响应
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Dimension 返回配置的向量维度
func (c *Client) Dimension() int {
	return c.dimension
}

// EmbedTexts 批量向量化文本
// 结果与输入一一对应且保持顺序；超过批量上限时自动分批
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if len(texts) <= maxBatchSize {
		return c.embedBatch(ctx, texts)
	}

	c.logger.Info("Splitting texts into batches",
		"total_texts", len(texts),
		"batch_limit", maxBatchSize,
	)

	allVectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", i, err)
		}
		allVectors = append(allVectors, vectors...)
	}

	return allVectors, nil
}

// embedBatch 处理单个批次，瞬时故障按退避间隔重试
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := EmbeddingRequest{
		Model: c.model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := buildEmbeddingURL(c.baseURL)

	c.logger.Debug("Sending embedding request",
		"url", url,
		"batch_size", len(texts),
		"model", c.model,
		"api_key", maskAPIKey(c.apiKey),
	)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domainMemory.ErrEmbeddingUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * c.retryBackoff): // 递增延迟
			}
		}

		vectors, err := c.doRequest(ctx, url, jsonData, len(texts))
		if err == nil {
			return vectors, nil
		}

		// 协议错误不重试
		if errors.Is(err, domainMemory.ErrEmbeddingProtocol) {
			c.logger.Error("Embedding protocol error", "error", err)
			return nil, err
		}

		lastErr = err
		c.logger.Warn("Embedding request failed, retrying",
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"error", err,
		)
	}

	c.logger.Error("Embedding request failed after all retries",
		"max_retries", c.maxRetries,
		"error", lastErr,
	)
	return nil, fmt.Errorf("%w: %v", domainMemory.ErrEmbeddingUnavailable, lastErr)
}

// doRequest 执行一次 HTTP 请求并解析响应
// 返回的错误区分瞬时故障（裸错误）与协议错误（ErrEmbeddingProtocol）
func (c *Client) doRequest(ctx context.Context, url string, body []byte, expected int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 网络错误与超时均视为瞬时故障
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// 5xx 视为瞬时故障；4xx 说明请求本身有问题，重试无意义
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: endpoint returned status %d: %s",
			domainMemory.ErrEmbeddingProtocol, resp.StatusCode, string(respBody))
	}

	var embeddingResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domainMemory.ErrEmbeddingProtocol, err)
	}

	if len(embeddingResp.Data) != expected {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d",
			domainMemory.ErrEmbeddingProtocol, expected, len(embeddingResp.Data))
	}

	// 按响应中的 index 还原输入顺序
	vectors := make([][]float32, expected)
	for _, data := range embeddingResp.Data {
		if data.Index < 0 || data.Index >= expected {
			return nil, fmt.Errorf("%w: vector index %d out of range", domainMemory.ErrEmbeddingProtocol, data.Index)
		}
		if c.dimension > 0 && len(data.Embedding) != c.dimension {
			return nil, fmt.Errorf("%w: expected %d dimensions, got %d",
				domainMemory.ErrEmbeddingProtocol, c.dimension, len(data.Embedding))
		}
		vectors[data.Index] = data.Embedding
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("%w: missing vector for input %d", domainMemory.ErrEmbeddingProtocol, i)
		}
	}

	return vectors, nil
}

// CheckConnectivity 通过一次测试请求检查端点可达性
// 供健康检查使用
func (c *Client) CheckConnectivity(ctx context.Context) error {
	vectors, err := c.EmbedTexts(ctx, []string{"ping"})
	if err != nil {
		return err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("%w: empty embedding response", domainMemory.ErrEmbeddingProtocol)
	}
	return nil
}

// maskAPIKey API Key 脱敏
func maskAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	}
	return "***"
}

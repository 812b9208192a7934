package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
)

func newTestClient(baseURL string, dimension int) *Client {
	return NewClient(&config.EmbeddingConfig{
		BaseURL:      baseURL,
		Model:        "test-model",
		Dimension:    dimension,
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
}

// embeddingHandler 返回与输入数量一致的固定维度向量
func embeddingHandler(dimension int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := map[string]any{"model": req.Model}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(i + 1)
			data[i] = map[string]any{"embedding": vec, "index": i}
		}
		resp["data"] = data
		json.NewEncoder(w).Encode(resp)
	}
}

func TestEmbedTexts_Success(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(4))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	vectors, err := client.EmbedTexts(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Len(t, vectors[0], 4)
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	// 空输入不应触发任何 HTTP 请求
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request for empty input")
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	vectors, err := client.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedTexts_RetryThenSuccess(t *testing.T) {
	var calls int32
	handler := embeddingHandler(4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	vectors, err := client.EmbedTexts(context.Background(), []string{"retry me"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmbedTexts_UnavailableAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEmbedTexts_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(4))
	server.Close() // 立即关闭，模拟端点不可达

	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingUnavailable))
}

func TestEmbedTexts_CountMismatchIsProtocolError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3,0.4],"index":0}],"model":"test-model"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingProtocol))
	// 协议错误不应重试
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbedTexts_MalformedJSONIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": not json`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingProtocol))
}

func TestEmbedTexts_ClientErrorIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingProtocol))
}

func TestEmbedTexts_DimensionCheck(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(8))
	defer server.Close()

	// 配置 4 维但端点返回 8 维
	client := newTestClient(server.URL, 4)
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingProtocol))
}

func TestEmbedTexts_APIKeyHeader(t *testing.T) {
	var gotAuth string
	handler := embeddingHandler(4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		handler(w, r)
	}))
	defer server.Close()

	client := NewClient(&config.EmbeddingConfig{
		BaseURL:      server.URL,
		APIKey:       "sk-test-key",
		Model:        "test-model",
		Dimension:    4,
		Timeout:      5 * time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})
	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test-key", gotAuth)
}

func TestBuildEmbeddingURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{"完整路径", "http://localhost:1234/v1/embeddings", "http://localhost:1234/v1/embeddings"},
		{"v1 后缀", "http://localhost:1234/v1", "http://localhost:1234/v1/embeddings"},
		{"裸地址", "http://localhost:1234", "http://localhost:1234/v1/embeddings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildEmbeddingURL(tt.baseURL))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "", maskAPIKey(""))
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefgwxyz"))
}

package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/application/tools"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
)

const testDimension = 4

// fakeEmbedder 确定性向量生成器
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0, 0}
	}
	return vectors, nil
}

func (fakeEmbedder) Dimension() int { return testDimension }

// memChunkRepo 内存分块仓储
type memChunkRepo struct {
	chunks []*domainMemory.Chunk
}

func (r *memChunkRepo) SaveChunk(_ context.Context, chunk *domainMemory.Chunk) error {
	if chunk.ID == "" {
		chunk.ID = "chunk-1"
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *memChunkRepo) SaveChunks(ctx context.Context, chunks []*domainMemory.Chunk) error {
	for _, chunk := range chunks {
		if err := r.SaveChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (r *memChunkRepo) GetChunk(_ context.Context, id string) (*domainMemory.Chunk, error) {
	return nil, nil
}

func (r *memChunkRepo) GetChunksBySession(_ context.Context, sessionID string) ([]*domainMemory.Chunk, error) {
	var out []*domainMemory.Chunk
	for _, chunk := range r.chunks {
		if chunk.SessionID == sessionID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (r *memChunkRepo) GetRecentChunks(ctx context.Context, sessionID string, limit int) ([]*domainMemory.Chunk, error) {
	if limit <= 0 {
		return nil, domainMemory.ErrConfiguration
	}
	return r.GetChunksBySession(ctx, sessionID)
}

func (r *memChunkRepo) DeleteChunksBySession(_ context.Context, sessionID string) (int64, error) {
	return 0, nil
}

// memMessageRepo 内存消息仓储
type memMessageRepo struct {
	messages []*domainMemory.Message
}

func (r *memMessageRepo) SaveMessage(_ context.Context, msg *domainMemory.Message) error {
	if msg.ID == "" {
		msg.ID = "msg-1"
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memMessageRepo) GetMessage(_ context.Context, id string) (*domainMemory.Message, error) {
	return nil, nil
}

func (r *memMessageRepo) GetSessionMessages(_ context.Context, sessionID string) ([]*domainMemory.Message, error) {
	return nil, nil
}

func (r *memMessageRepo) ListInactiveSessions(_ context.Context, cutoff int64) ([]string, error) {
	return nil, nil
}

func (r *memMessageRepo) DeleteSessionMessages(_ context.Context, sessionID string) (int64, error) {
	return 0, nil
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	chunker, err := appMemory.NewChunker(&config.ChunkingConfig{
		MaxSize:  100,
		Overlap:  10,
		SizeUnit: config.SizeUnitChars,
	}, nil)
	require.NoError(t, err)

	embedder := fakeEmbedder{}
	msgRepo := &memMessageRepo{}
	chunkRepo := &memChunkRepo{}
	pipeline := appMemory.NewPipeline(chunker, embedder, msgRepo, chunkRepo, nil, nil)
	search := appMemory.NewSearchService(embedder, chunkRepo, nil)

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.NewFuncTool("echo", "echoes arguments",
		func(_ context.Context, args json.RawMessage) (any, error) {
			return json.RawMessage(args), nil
		})))

	return NewDispatcher(pipeline, search, registry)
}

func handle(t *testing.T, d *Dispatcher, body string) *Response {
	t.Helper()
	resp := d.Handle(context.Background(), []byte(body))
	require.NotNil(t, resp)
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func TestHandle_StoreMessage(t *testing.T) {
	d := newTestDispatcher(t)
	resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"store_message","params":{"session_id":"s1","user_id":"u1","role":"user","content":"hello world"}}`)

	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "msg-1", result["message_id"])
	assert.Equal(t, 1, result["chunk_count"])
	assert.Equal(t, json.RawMessage("1"), resp.ID)
}

func TestHandle_SemanticSearchRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"store_message","params":{"session_id":"s1","role":"user","content":"the fox"}}`)

	resp := handle(t, d, `{"jsonrpc":"2.0","id":2,"method":"semantic_search","params":{"session_id":"s1","query":"fox","top_k":3}}`)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	assert.Equal(t, 1, result["count"])
}

func TestHandle_ParseError(t *testing.T) {
	d := newTestDispatcher(t)
	resp := handle(t, d, `{not json`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Equal(t, json.RawMessage("null"), resp.ID)
}

func TestHandle_InvalidRequest(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("wrong version", func(t *testing.T) {
		resp := handle(t, d, `{"jsonrpc":"1.0","id":1,"method":"store_message"}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	})

	t.Run("missing method", func(t *testing.T) {
		resp := handle(t, d, `{"jsonrpc":"2.0","id":1}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	})
}

func TestHandle_MethodNotFound(t *testing.T) {
	d := newTestDispatcher(t)
	resp := handle(t, d, `{"jsonrpc":"2.0","id":7,"method":"nonexistent_method","params":{}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, json.RawMessage("7"), resp.ID)
}

func TestHandle_UnknownMethodRoutesToTool(t *testing.T) {
	d := newTestDispatcher(t)
	resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"echo","params":{"key":"value"}}`)

	require.Nil(t, resp.Error)
	raw, ok := resp.Result.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"key":"value"}`, string(raw))
}

func TestHandle_ToolsListAndCall(t *testing.T) {
	d := newTestDispatcher(t)

	resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	descriptors, ok := resp.Result.([]tools.Descriptor)
	require.True(t, ok)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "echo", descriptors[0].Name)

	resp = handle(t, d, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"a":1}}}`)
	require.Nil(t, resp.Error)
}

func TestHandle_InvalidParams(t *testing.T) {
	d := newTestDispatcher(t)

	t.Run("missing session_id", func(t *testing.T) {
		resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"store_message","params":{"role":"user","content":"x"}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidParams, resp.Error.Code)
		assert.Equal(t, "invalid_params", resp.Error.Data)
	})

	t.Run("invalid role", func(t *testing.T) {
		resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"store_message","params":{"session_id":"s1","role":"robot","content":"x"}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	})

	t.Run("negative top_k", func(t *testing.T) {
		resp := handle(t, d, `{"jsonrpc":"2.0","id":1,"method":"semantic_search","params":{"session_id":"s1","query":"x","top_k":-1}}`)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidParams, resp.Error.Code)
		assert.Equal(t, "configuration_error", resp.Error.Data)
	})
}

func TestHandle_MissingIDGetsNull(t *testing.T) {
	d := newTestDispatcher(t)
	resp := handle(t, d, `{"jsonrpc":"2.0","method":"tools/list"}`)
	assert.Equal(t, json.RawMessage("null"), resp.ID)
}

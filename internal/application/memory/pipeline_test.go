package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
)

const testDimension = 4

func newTestPipeline(t *testing.T, embedder Embedder, msgRepo domainMemory.MessageRepository, chunkRepo domainMemory.ChunkRepository) *Pipeline {
	t.Helper()
	chunker, err := NewChunker(&config.ChunkingConfig{
		MaxSize:  20,
		Overlap:  5,
		SizeUnit: config.SizeUnitChars,
	}, nil)
	require.NoError(t, err)
	return NewPipeline(chunker, embedder, msgRepo, chunkRepo, nil, nil)
}

func TestStoreMessage_ChunksAndEmbeds(t *testing.T) {
	embedder := &fakeEmbedder{dim: testDimension}
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(testDimension)
	pipeline := newTestPipeline(t, embedder, msgRepo, chunkRepo)

	content := strings.Repeat("context window test ", 5) // 100 runes
	result, err := pipeline.StoreMessage(context.Background(), "session-1", "user-1", domainMemory.RoleUser, content)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Message.ID)
	assert.Greater(t, result.ChunkCount, 1)

	// 分块序号连续且覆盖原文顺序
	chunks, err := chunkRepo.GetChunksBySession(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, chunks, result.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, result.Message.ID, chunk.MessageID)
		assert.Len(t, chunk.Embedding, testDimension)
	}

	// 单条消息只触发一次批量向量化
	assert.Equal(t, 1, embedder.calls)
}

func TestStoreMessage_InvalidInput(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEmbedder{dim: testDimension}, newFakeMessageRepo(), newFakeChunkRepo(testDimension))

	tests := []struct {
		name      string
		sessionID string
		role      string
		content   string
	}{
		{"missing session", "", domainMemory.RoleUser, "hello"},
		{"missing content", "s1", domainMemory.RoleUser, ""},
		{"invalid role", "s1", "system", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.StoreMessage(context.Background(), tt.sessionID, "u1", tt.role, tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainMemory.ErrInvalidInput))
		})
	}
}

func TestStoreMessage_EmbeddingFailurePersistsNothing(t *testing.T) {
	embedder := &fakeEmbedder{
		dim: testDimension,
		err: fmt.Errorf("%w: endpoint down", domainMemory.ErrEmbeddingUnavailable),
	}
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(testDimension)
	pipeline := newTestPipeline(t, embedder, msgRepo, chunkRepo)

	_, err := pipeline.StoreMessage(context.Background(), "session-1", "u1", domainMemory.RoleUser, "some content here")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrEmbeddingUnavailable))

	chunks, _ := chunkRepo.GetChunksBySession(context.Background(), "session-1")
	assert.Empty(t, chunks)
}

func TestStoreMessage_PartialChunkFailureSurfaced(t *testing.T) {
	embedder := &fakeEmbedder{dim: testDimension}
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(testDimension)
	chunkRepo.failAfter = 3 // 第三次写入开始失败
	pipeline := newTestPipeline(t, embedder, msgRepo, chunkRepo)

	content := strings.Repeat("x", 100) // 多个分块
	_, err := pipeline.StoreMessage(context.Background(), "session-1", "u1", domainMemory.RoleUser, content)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrStorage))
	// 错误信息携带已持久化数量
	assert.Contains(t, err.Error(), "persisted 2 of")

	// 已落库的分块保留，不做静默回滚
	chunks, _ := chunkRepo.GetChunksBySession(context.Background(), "session-1")
	assert.Len(t, chunks, 2)
}

func TestStoreChunk_CallerProvidedVector(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEmbedder{dim: testDimension}, newFakeMessageRepo(), newFakeChunkRepo(testDimension))

	chunkID, err := pipeline.StoreChunk(context.Background(), &domainMemory.Chunk{
		SessionID:  "session-1",
		ChunkIndex: 0,
		Content:    "precomputed",
		Embedding:  []float32{0.1, 0.2, 0.3, 0.4},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, chunkID)
}

func TestStoreChunk_DimensionMismatch(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEmbedder{dim: testDimension}, newFakeMessageRepo(), newFakeChunkRepo(testDimension))

	_, err := pipeline.StoreChunk(context.Background(), &domainMemory.Chunk{
		SessionID: "session-1",
		Content:   "wrong dims",
		Embedding: []float32{0.1, 0.2}, // 配置为 4 维
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrDimensionMismatch))
}

func TestRecentChunks_RejectsNonPositiveLimit(t *testing.T) {
	pipeline := newTestPipeline(t, &fakeEmbedder{dim: testDimension}, newFakeMessageRepo(), newFakeChunkRepo(testDimension))

	_, err := pipeline.RecentChunks(context.Background(), "session-1", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainMemory.ErrConfiguration))
}

func TestStoreMessage_ConcurrentSameSession(t *testing.T) {
	embedder := &fakeEmbedder{dim: testDimension}
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(testDimension)
	pipeline := newTestPipeline(t, embedder, msgRepo, chunkRepo)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := fmt.Sprintf("concurrent message %d body", i)
			_, errs[i] = pipeline.StoreMessage(context.Background(), "shared", "u1", domainMemory.RoleUser, content)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	// 所有消息的分块事后均可检索
	chunks, err := pipeline.RecentChunks(context.Background(), "shared", 100)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		seen[chunk.MessageID] = true
	}
	assert.Len(t, seen, writers)
}

func TestIngestDocument_AtomicBatch(t *testing.T) {
	embedder := &fakeEmbedder{dim: testDimension}
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(testDimension)
	pipeline := newTestPipeline(t, embedder, msgRepo, chunkRepo)

	result, err := pipeline.IngestDocument(context.Background(), "file:notes.md", strings.Repeat("document body ", 10))
	require.NoError(t, err)
	assert.Greater(t, result.ChunkCount, 1)

	chunks, _ := chunkRepo.GetChunksBySession(context.Background(), "file:notes.md")
	assert.Len(t, chunks, result.ChunkCount)
}

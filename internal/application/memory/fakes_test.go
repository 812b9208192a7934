package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
)

// fakeEmbedder 确定性向量生成器，首分量编码文本长度
type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len([]rune(text)))
		vec[1] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeMessageRepo 内存消息仓储
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domainMemory.Message
	saveErr  error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*domainMemory.Message)}
}

func (r *fakeMessageRepo) SaveMessage(_ context.Context, msg *domainMemory.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	clone := *msg
	r.messages[msg.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) GetMessage(_ context.Context, id string) (*domainMemory.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[id], nil
}

func (r *fakeMessageRepo) GetSessionMessages(_ context.Context, sessionID string) ([]*domainMemory.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainMemory.Message
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListInactiveSessions(_ context.Context, cutoff int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]int64)
	for _, msg := range r.messages {
		if msg.CreatedAt > latest[msg.SessionID] {
			latest[msg.SessionID] = msg.CreatedAt
		}
	}
	var out []string
	for sessionID, ts := range latest {
		if ts < cutoff {
			out = append(out, sessionID)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) DeleteSessionMessages(_ context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, msg := range r.messages {
		if msg.SessionID == sessionID {
			delete(r.messages, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeChunkRepo 内存分块仓储，可按序号注入写入失败
type fakeChunkRepo struct {
	mu        sync.Mutex
	dimension int
	chunks    []*domainMemory.Chunk
	failAfter int // 第 N 次 SaveChunk 开始失败，0 表示不失败
	saves     int
}

func newFakeChunkRepo(dimension int) *fakeChunkRepo {
	return &fakeChunkRepo{dimension: dimension}
}

func (r *fakeChunkRepo) SaveChunk(_ context.Context, chunk *domainMemory.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failAfter > 0 && r.saves >= r.failAfter {
		return fmt.Errorf("%w: injected failure", domainMemory.ErrStorage)
	}
	if len(chunk.Embedding) > 0 && len(chunk.Embedding) != r.dimension {
		return fmt.Errorf("%w: expected %d, got %d",
			domainMemory.ErrDimensionMismatch, r.dimension, len(chunk.Embedding))
	}
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	clone := *chunk
	r.chunks = append(r.chunks, &clone)
	return nil
}

func (r *fakeChunkRepo) SaveChunks(ctx context.Context, chunks []*domainMemory.Chunk) error {
	for _, chunk := range chunks {
		if err := r.SaveChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeChunkRepo) GetChunk(_ context.Context, id string) (*domainMemory.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunk := range r.chunks {
		if chunk.ID == id {
			return chunk, nil
		}
	}
	return nil, nil
}

func (r *fakeChunkRepo) GetChunksBySession(_ context.Context, sessionID string) ([]*domainMemory.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainMemory.Chunk
	for _, chunk := range r.chunks {
		if chunk.SessionID == sessionID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (r *fakeChunkRepo) GetRecentChunks(_ context.Context, sessionID string, limit int) ([]*domainMemory.Chunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domainMemory.ErrConfiguration)
	}
	chunks, _ := r.GetChunksBySession(context.Background(), sessionID)
	if len(chunks) > limit {
		chunks = chunks[len(chunks)-limit:]
	}
	return chunks, nil
}

func (r *fakeChunkRepo) DeleteChunksBySession(_ context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domainMemory.Chunk
	var deleted int64
	for _, chunk := range r.chunks {
		if chunk.SessionID == sessionID {
			deleted++
			continue
		}
		kept = append(kept, chunk)
	}
	r.chunks = kept
	return deleted, nil
}

package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"log/slog"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// SearchService 会话内相似度检索
// 结果按相似度严格降序，同分时较新分块优先
type SearchService struct {
	embedder  Embedder
	chunkRepo domainMemory.ChunkRepository
	index     VectorIndex
	logger    *slog.Logger
}

// NewSearchService 创建检索服务
func NewSearchService(embedder Embedder, chunkRepo domainMemory.ChunkRepository, index VectorIndex) *SearchService {
	return &SearchService{
		embedder:  embedder,
		chunkRepo: chunkRepo,
		index:     index,
		logger:    log.NewModuleLogger("memory", "search"),
	}
}

// Search 以自然语言查询检索会话内最相关的分块
func (s *SearchService) Search(ctx context.Context, sessionID, query string, topK int) ([]*domainMemory.SearchResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domainMemory.ErrInvalidInput)
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be non-negative, got %d", domainMemory.ErrConfiguration, topK)
	}
	if topK == 0 {
		return []*domainMemory.SearchResult{}, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d",
			domainMemory.ErrEmbeddingProtocol, len(vectors))
	}

	return s.SearchVector(ctx, sessionID, vectors[0], topK)
}

// SearchVector 以既有向量检索会话内最相关的分块
func (s *SearchService) SearchVector(ctx context.Context, sessionID string, queryVector []float32, topK int) ([]*domainMemory.SearchResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domainMemory.ErrInvalidInput)
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be non-negative, got %d", domainMemory.ErrConfiguration, topK)
	}
	if topK == 0 {
		return []*domainMemory.SearchResult{}, nil
	}

	var results []*domainMemory.SearchResult
	var err error
	if s.index != nil {
		results, err = s.index.QuerySession(ctx, sessionID, queryVector, topK)
		if err != nil {
			return nil, fmt.Errorf("%w: vector index query: %v", domainMemory.ErrStorage, err)
		}
	} else {
		results, err = s.scanSession(ctx, sessionID, queryVector, topK)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > 0 {
		s.logger.Debug("Top search hit",
			"session_id", sessionID,
			"score", results[0].Score,
			"preview", results[0].Chunk.ContentPreview(),
		)
	}
	return results, nil
}

// scanSession 数据库内全量余弦计算
// 维度不一致的候选（历史模型残留）直接跳过，不报错
func (s *SearchService) scanSession(ctx context.Context, sessionID string, queryVector []float32, topK int) ([]*domainMemory.SearchResult, error) {
	chunks, err := s.chunkRepo.GetChunksBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]*domainMemory.SearchResult, 0, len(chunks))
	skipped := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) != len(queryVector) {
			skipped++
			continue
		}
		results = append(results, &domainMemory.SearchResult{
			Chunk: chunk,
			Score: CosineSimilarity(queryVector, chunk.Embedding),
		})
	}

	if skipped > 0 {
		s.logger.Warn("Skipped chunks with stale embedding dimensions",
			"session_id", sessionID,
			"skipped", skipped,
		)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		// 同分时较新分块优先
		if results[i].Chunk.CreatedAt != results[j].Chunk.CreatedAt {
			return results[i].Chunk.CreatedAt > results[j].Chunk.CreatedAt
		}
		return results[i].Chunk.ChunkIndex > results[j].Chunk.ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity 计算余弦相似度
// 调用前维度已对齐；零向量相似度为 0
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

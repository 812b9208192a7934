// Package vector 提供可选的 Qdrant 向量索引
// VECTOR_BACKEND=qdrant 时启用，否则检索在 SQLite 内完成
package vector

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// QdrantIndex 基于 Qdrant 的会话向量索引
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	logger     *slog.Logger
}

// NewQdrantIndex 连接 Qdrant 并确保集合存在
func NewQdrantIndex(searchCfg *config.SearchConfig, embeddingCfg *config.EmbeddingConfig) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: searchCfg.QdrantHost,
		Port: searchCfg.QdrantPort,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: searchCfg.Collection,
		dimension:  uint64(embeddingCfg.Dimension),
		logger:     log.NewModuleLogger("vector", "qdrant"),
	}

	if err := idx.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

// ensureCollection 确保集合存在，不存在则以余弦距离创建
func (ix *QdrantIndex) ensureCollection(ctx context.Context) error {
	existing, err := ix.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range existing {
		if name == ix.collection {
			return nil
		}
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     ix.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", ix.collection, err)
	}

	ix.logger.Info("Created qdrant collection",
		"collection", ix.collection,
		"dimension", ix.dimension,
	)
	return nil
}

// UpsertChunks 写入分块向量及负载
func (ix *QdrantIndex) UpsertChunks(ctx context.Context, chunks []*domainMemory.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"chunk_id":     chunk.ID,
				"session_id":   chunk.SessionID,
				"message_id":   chunk.MessageID,
				"chunk_index":  int64(chunk.ChunkIndex),
				"content":      chunk.Content,
				"start_offset": int64(chunk.StartOffset),
				"end_offset":   int64(chunk.EndOffset),
				"created_at":   chunk.CreatedAt,
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	ix.logger.Debug("Upserted chunks to qdrant", "count", len(points))
	return nil
}

// QuerySession 会话内向量检索
// Qdrant 已按余弦相似度降序返回
func (ix *QdrantIndex) QuerySession(ctx context.Context, sessionID string, vector []float32, topK int) ([]*domainMemory.SearchResult, error) {
	limit := uint64(topK)
	hits, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("session_id", sessionID),
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	results := make([]*domainMemory.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if result := hitToResult(hit); result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// DeleteSession 删除会话的全部向量点
func (ix *QdrantIndex) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("session_id", sessionID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session points: %w", err)
	}
	return nil
}

// Close 关闭客户端连接
func (ix *QdrantIndex) Close() error {
	return ix.client.Close()
}

// hitToResult 将 Qdrant 命中还原为检索结果
func hitToResult(hit *qdrant.ScoredPoint) *domainMemory.SearchResult {
	payload := hit.GetPayload()
	if payload == nil {
		return nil
	}

	chunk := &domainMemory.Chunk{
		ID:          extractStringValue(payload["chunk_id"]),
		SessionID:   extractStringValue(payload["session_id"]),
		MessageID:   extractStringValue(payload["message_id"]),
		ChunkIndex:  int(extractIntValue(payload["chunk_index"])),
		Content:     extractStringValue(payload["content"]),
		StartOffset: int(extractIntValue(payload["start_offset"])),
		EndOffset:   int(extractIntValue(payload["end_offset"])),
		CreatedAt:   extractIntValue(payload["created_at"]),
	}

	return &domainMemory.SearchResult{
		Chunk: chunk,
		Score: float64(hit.GetScore()),
	}
}

// extractStringValue 从 qdrant.Value 提取字符串值
func extractStringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

// extractIntValue 从 qdrant.Value 提取整数值
func extractIntValue(val *qdrant.Value) int64 {
	if val == nil {
		return 0
	}
	if intVal := val.GetIntegerValue(); intVal != 0 {
		return intVal
	}
	if dblVal := val.GetDoubleValue(); dblVal != 0 {
		return int64(dblVal)
	}
	return 0
}

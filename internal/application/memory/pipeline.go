package memory

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// Embedder 向量化客户端接口
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex 可选的外部向量索引（如 Qdrant）
// 为 nil 时检索退化为数据库内余弦计算
type VectorIndex interface {
	UpsertChunks(ctx context.Context, chunks []*domainMemory.Chunk) error
	QuerySession(ctx context.Context, sessionID string, vector []float32, topK int) ([]*domainMemory.SearchResult, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// StoreResult 入库结果
type StoreResult struct {
	Message    *domainMemory.Message
	ChunkCount int
}

// Pipeline 消息入库流水线
// 单条消息内分块按 chunk_index 递增顺序落库；
// 中途失败时已落库的分块保留，错误中携带已持久化数量
type Pipeline struct {
	chunker     *Chunker
	embedder    Embedder
	messageRepo domainMemory.MessageRepository
	chunkRepo   domainMemory.ChunkRepository
	index       VectorIndex
	eventBus    events.EventBus
	logger      *slog.Logger
}

// NewPipeline 创建入库流水线
func NewPipeline(
	chunker *Chunker,
	embedder Embedder,
	messageRepo domainMemory.MessageRepository,
	chunkRepo domainMemory.ChunkRepository,
	index VectorIndex,
	eventBus events.EventBus,
) *Pipeline {
	return &Pipeline{
		chunker:     chunker,
		embedder:    embedder,
		messageRepo: messageRepo,
		chunkRepo:   chunkRepo,
		index:       index,
		eventBus:    eventBus,
		logger:      log.NewModuleLogger("memory", "pipeline"),
	}
}

// StoreMessage 存储消息并同步完成分块、向量化、落库
func (p *Pipeline) StoreMessage(ctx context.Context, sessionID, userID, role, content string) (*StoreResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domainMemory.ErrInvalidInput)
	}
	if !domainMemory.ValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role %q", domainMemory.ErrInvalidInput, role)
	}

	msg := &domainMemory.Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
	}
	if err := p.messageRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	pieces, err := p.chunker.ChunkText(content)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return &StoreResult{Message: msg, ChunkCount: 0}, nil
	}

	chunks, err := p.embedPieces(ctx, msg, pieces)
	if err != nil {
		return nil, err
	}

	// 按 chunk_index 递增顺序逐条落库
	// 中途失败时前面的分块保留，由调用方决定是否整批重试
	for i, chunk := range chunks {
		if err := p.chunkRepo.SaveChunk(ctx, chunk); err != nil {
			return nil, fmt.Errorf("persisted %d of %d chunks: %w", i, len(chunks), err)
		}
	}

	if err := p.indexChunks(ctx, chunks); err != nil {
		return nil, err
	}

	p.publishIndexed(msg, len(chunks))

	p.logger.Info("Message stored",
		"session_id", sessionID,
		"message_id", msg.ID,
		"chunks", len(chunks),
	)
	return &StoreResult{Message: msg, ChunkCount: len(chunks)}, nil
}

// StoreChunk 存储调用方自带向量的单个分块
// 维度校验由仓储层完成
func (p *Pipeline) StoreChunk(ctx context.Context, chunk *domainMemory.Chunk) (string, error) {
	if chunk.SessionID == "" {
		return "", fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	if chunk.Content == "" {
		return "", fmt.Errorf("%w: content is required", domainMemory.ErrInvalidInput)
	}

	if err := p.chunkRepo.SaveChunk(ctx, chunk); err != nil {
		return "", err
	}
	if chunk.HasEmbedding() {
		if err := p.indexChunks(ctx, []*domainMemory.Chunk{chunk}); err != nil {
			return "", err
		}
	}
	return chunk.ID, nil
}

// IngestDocument 整篇导入外部文档（文件监听等场景）
// 与交互式入库不同，分块整批事务落库，全有或全无
func (p *Pipeline) IngestDocument(ctx context.Context, sessionID, content string) (*StoreResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", domainMemory.ErrInvalidInput)
	}

	msg := &domainMemory.Message{
		SessionID: sessionID,
		Role:      domainMemory.RoleUser,
		Content:   content,
	}
	if err := p.messageRepo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	pieces, err := p.chunker.ChunkText(content)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return &StoreResult{Message: msg, ChunkCount: 0}, nil
	}

	chunks, err := p.embedPieces(ctx, msg, pieces)
	if err != nil {
		return nil, err
	}

	if err := p.chunkRepo.SaveChunks(ctx, chunks); err != nil {
		return nil, err
	}
	if err := p.indexChunks(ctx, chunks); err != nil {
		return nil, err
	}

	p.publishIndexed(msg, len(chunks))
	return &StoreResult{Message: msg, ChunkCount: len(chunks)}, nil
}

// RecentChunks 按创建时间倒序返回会话最近的分块
func (p *Pipeline) RecentChunks(ctx context.Context, sessionID string, limit int) ([]*domainMemory.Chunk, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	return p.chunkRepo.GetRecentChunks(ctx, sessionID, limit)
}

// SessionMessages 按时间升序返回会话消息
func (p *Pipeline) SessionMessages(ctx context.Context, sessionID string) ([]*domainMemory.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", domainMemory.ErrInvalidInput)
	}
	return p.messageRepo.GetSessionMessages(ctx, sessionID)
}

// embedPieces 批量向量化并组装分块实体，保持 Chunker 产出顺序
func (p *Pipeline) embedPieces(ctx context.Context, msg *domainMemory.Message, pieces []Piece) ([]*domainMemory.Chunk, error) {
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d",
			domainMemory.ErrEmbeddingProtocol, len(pieces), len(vectors))
	}

	now := time.Now().UnixMilli()
	chunks := make([]*domainMemory.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &domainMemory.Chunk{
			SessionID:   msg.SessionID,
			MessageID:   msg.ID,
			ChunkIndex:  piece.Index,
			Content:     piece.Content,
			Embedding:   vectors[i],
			StartOffset: piece.StartOffset,
			EndOffset:   piece.EndOffset,
			CreatedAt:   now,
		}
	}
	return chunks, nil
}

// indexChunks 同步写入外部向量索引（若配置）
func (p *Pipeline) indexChunks(ctx context.Context, chunks []*domainMemory.Chunk) error {
	if p.index == nil {
		return nil
	}
	if err := p.index.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("%w: vector index upsert: %v", domainMemory.ErrStorage, err)
	}
	return nil
}

// publishIndexed 发布索引完成事件，通知 WebSocket 订阅方
func (p *Pipeline) publishIndexed(msg *domainMemory.Message, chunkCount int) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(&events.MessageIndexedEvent{
		SessionID:  msg.SessionID,
		MessageID:  msg.ID,
		ChunkCount: chunkCount,
		EventTime:  time.Now(),
	})
}

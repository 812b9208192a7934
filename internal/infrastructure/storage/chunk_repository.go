package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
)

// 确保 ChunkRepositoryImpl 实现了 domainMemory.ChunkRepository 接口
var _ domainMemory.ChunkRepository = (*ChunkRepositoryImpl)(nil)

// ChunkRepositoryImpl 上下文片段仓库实现
// 向量以小端 float32 BLOB 存储，读取时解码为 []float32
type ChunkRepositoryImpl struct {
	db        *sql.DB
	dimension int
}

// NewChunkRepository 创建片段仓库实例
// 向量维度来自配置，在写入时校验
func NewChunkRepository(db *sql.DB, embeddingCfg *config.EmbeddingConfig) domainMemory.ChunkRepository {
	return &ChunkRepositoryImpl{db: db, dimension: embeddingCfg.Dimension}
}

// validateChunk 写入前校验片段
func (r *ChunkRepositoryImpl) validateChunk(chunk *domainMemory.Chunk) error {
	if len(chunk.Embedding) != 0 && len(chunk.Embedding) != r.dimension {
		return fmt.Errorf("%w: expected %d dimensions, got %d",
			domainMemory.ErrDimensionMismatch, r.dimension, len(chunk.Embedding))
	}
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	if chunk.CreatedAt == 0 {
		chunk.CreatedAt = time.Now().UnixMilli()
	}
	return nil
}

const insertChunkSQL = `
	INSERT OR REPLACE INTO context_chunks (
		id, session_id, message_id, chunk_index, content,
		embedding, start_offset, end_offset, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SaveChunk 保存单个片段
func (r *ChunkRepositoryImpl) SaveChunk(ctx context.Context, chunk *domainMemory.Chunk) error {
	if err := r.validateChunk(chunk); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, insertChunkSQL,
		chunk.ID,
		chunk.SessionID,
		chunk.MessageID,
		chunk.ChunkIndex,
		chunk.Content,
		EncodeVector(chunk.Embedding),
		chunk.StartOffset,
		chunk.EndOffset,
		chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save chunk: %v", domainMemory.ErrStorage, err)
	}
	return nil
}

// SaveChunks 事务内批量保存片段
func (r *ChunkRepositoryImpl) SaveChunks(ctx context.Context, chunks []*domainMemory.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	// 维度校验先于任何写入
	for _, chunk := range chunks {
		if err := r.validateChunk(chunk); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domainMemory.ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertChunkSQL)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", domainMemory.ErrStorage, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.ID,
			chunk.SessionID,
			chunk.MessageID,
			chunk.ChunkIndex,
			chunk.Content,
			EncodeVector(chunk.Embedding),
			chunk.StartOffset,
			chunk.EndOffset,
			chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: save chunk %d: %v", domainMemory.ErrStorage, chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domainMemory.ErrStorage, err)
	}
	return nil
}

const selectChunkColumns = `
	SELECT id, session_id, message_id, chunk_index, content,
	       embedding, start_offset, end_offset, created_at
	FROM context_chunks`

// GetChunk 按 ID 获取片段
func (r *ChunkRepositoryImpl) GetChunk(ctx context.Context, id string) (*domainMemory.Chunk, error) {
	row := r.db.QueryRowContext(ctx, selectChunkColumns+` WHERE id = ?`, id)
	chunk, err := scanChunk(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get chunk: %v", domainMemory.ErrStorage, err)
	}
	return chunk, nil
}

// GetChunksBySession 按会话获取所有片段
func (r *ChunkRepositoryImpl) GetChunksBySession(ctx context.Context, sessionID string) ([]*domainMemory.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, selectChunkColumns+`
		WHERE session_id = ?
		ORDER BY created_at ASC, chunk_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query session chunks: %v", domainMemory.ErrStorage, err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// GetRecentChunks 按写入时间降序获取最近片段
// 未知会话返回空序列而非错误
func (r *ChunkRepositoryImpl) GetRecentChunks(ctx context.Context, sessionID string, limit int) ([]*domainMemory.Chunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domainMemory.ErrConfiguration, limit)
	}

	rows, err := r.db.QueryContext(ctx, selectChunkColumns+`
		WHERE session_id = ?
		ORDER BY created_at DESC, chunk_index DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent chunks: %v", domainMemory.ErrStorage, err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// DeleteChunksBySession 删除会话的所有片段
func (r *ChunkRepositoryImpl) DeleteChunksBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM context_chunks WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete session chunks: %v", domainMemory.ErrStorage, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// scanChunk 扫描单行数据到 Chunk
func scanChunk(scan func(dest ...any) error) (*domainMemory.Chunk, error) {
	var chunk domainMemory.Chunk
	var messageID sql.NullString
	var embeddingBlob []byte

	err := scan(
		&chunk.ID,
		&chunk.SessionID,
		&messageID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&embeddingBlob,
		&chunk.StartOffset,
		&chunk.EndOffset,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if messageID.Valid {
		chunk.MessageID = messageID.String
	}
	chunk.Embedding = DecodeVector(embeddingBlob)

	return &chunk, nil
}

// scanChunks 扫描多行数据到 Chunk 切片
func scanChunks(rows *sql.Rows) ([]*domainMemory.Chunk, error) {
	var results []*domainMemory.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", domainMemory.ErrStorage, err)
		}
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", domainMemory.ErrStorage, err)
	}
	return results, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
)

// 确保 MessageRepositoryImpl 实现了 domainMemory.MessageRepository 接口
var _ domainMemory.MessageRepository = (*MessageRepositoryImpl)(nil)

// MessageRepositoryImpl 消息仓库实现
type MessageRepositoryImpl struct {
	db *sql.DB
}

// NewMessageRepository 创建消息仓库实例
func NewMessageRepository(db *sql.DB) domainMemory.MessageRepository {
	return &MessageRepositoryImpl{db: db}
}

// SaveMessage 保存消息
// 会话无需预先存在，首条消息写入即隐式创建会话
func (r *MessageRepositoryImpl) SaveMessage(ctx context.Context, msg *domainMemory.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO messages (id, session_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.SessionID, msg.UserID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: save message: %v", domainMemory.ErrStorage, err)
	}
	return nil
}

// GetMessage 按 ID 获取消息
func (r *MessageRepositoryImpl) GetMessage(ctx context.Context, id string) (*domainMemory.Message, error) {
	query := `
		SELECT id, session_id, user_id, role, content, created_at
		FROM messages
		WHERE id = ?`

	var msg domainMemory.Message
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.SessionID, &msg.UserID, &msg.Role, &msg.Content, &msg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get message: %v", domainMemory.ErrStorage, err)
	}
	return &msg, nil
}

// GetSessionMessages 按会话获取消息，按写入时间升序
func (r *MessageRepositoryImpl) GetSessionMessages(ctx context.Context, sessionID string) ([]*domainMemory.Message, error) {
	query := `
		SELECT id, session_id, user_id, role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query session messages: %v", domainMemory.ErrStorage, err)
	}
	defer rows.Close()

	var results []*domainMemory.Message
	for rows.Next() {
		var msg domainMemory.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", domainMemory.ErrStorage, err)
		}
		results = append(results, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", domainMemory.ErrStorage, err)
	}
	return results, nil
}

// ListInactiveSessions 列出最后活跃时间早于 cutoff 的会话
func (r *MessageRepositoryImpl) ListInactiveSessions(ctx context.Context, cutoff int64) ([]string, error) {
	query := `
		SELECT session_id
		FROM messages
		GROUP BY session_id
		HAVING MAX(created_at) < ?`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: list inactive sessions: %v", domainMemory.ErrStorage, err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("%w: scan session id: %v", domainMemory.ErrStorage, err)
		}
		sessions = append(sessions, sessionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %v", domainMemory.ErrStorage, err)
	}
	return sessions, nil
}

// DeleteSessionMessages 删除会话的所有消息
func (r *MessageRepositoryImpl) DeleteSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: delete session messages: %v", domainMemory.ErrStorage, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Package storage 提供基于 SQLite 的持久化实现
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	_ "modernc.org/sqlite"
)

// ProvideDB 打开数据库连接并初始化表结构
// 连接池由 Store 独占持有，不对外暴露
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL 模式允许读写并发；busy_timeout 缓解写锁竞争
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema 初始化表结构
func InitSchema(db *sql.DB) error {
	createMessagesSQL := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createMessagesSQL); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	createChunksSQL := `
	CREATE TABLE IF NOT EXISTS context_chunks (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		message_id TEXT,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createChunksSQL); err != nil {
		return fmt.Errorf("failed to create context_chunks table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chunks_session_created ON context_chunks(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chunks_message ON context_chunks(message_id);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

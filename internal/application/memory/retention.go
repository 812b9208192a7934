package memory

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// SweepStats 单次清理统计
type SweepStats struct {
	Sessions        int
	MessagesDeleted int64
	ChunksDeleted   int64
}

// RetentionSweeper 周期性清理超出保留期的不活跃会话
// 以会话最后一条消息的时间判定活跃度
type RetentionSweeper struct {
	window      time.Duration
	interval    time.Duration
	messageRepo domainMemory.MessageRepository
	chunkRepo   domainMemory.ChunkRepository
	index       VectorIndex
	eventBus    events.EventBus
	logger      *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRetentionSweeper 创建保留期清理器
func NewRetentionSweeper(
	cfg *config.RetentionConfig,
	messageRepo domainMemory.MessageRepository,
	chunkRepo domainMemory.ChunkRepository,
	index VectorIndex,
	eventBus events.EventBus,
) *RetentionSweeper {
	return &RetentionSweeper{
		window:      cfg.Window,
		interval:    cfg.SweepInterval,
		messageRepo: messageRepo,
		chunkRepo:   chunkRepo,
		index:       index,
		eventBus:    eventBus,
		logger:      log.NewModuleLogger("memory", "retention"),
		stopCh:      make(chan struct{}),
	}
}

// Start 启动后台清理循环
// 保留期未配置时不启动
func (s *RetentionSweeper) Start(ctx context.Context) {
	if s.window <= 0 {
		s.logger.Info("Retention disabled, sweeper not started")
		return
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.logger.Info("Starting retention sweeper",
		"window", s.window.String(),
		"interval", interval.String(),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					s.logger.Error("Retention sweep failed", "error", err)
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止后台清理循环并等待其退出
func (s *RetentionSweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// SweepOnce 执行一次清理
// 先删分块再删消息，失败时下一轮重试剩余会话
func (s *RetentionSweeper) SweepOnce(ctx context.Context) (*SweepStats, error) {
	cutoff := time.Now().Add(-s.window).UnixMilli()

	sessions, err := s.messageRepo.ListInactiveSessions(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return &SweepStats{}, nil
	}

	stats := &SweepStats{}
	swept := make([]string, 0, len(sessions))
	for _, sessionID := range sessions {
		chunks, err := s.chunkRepo.DeleteChunksBySession(ctx, sessionID)
		if err != nil {
			return stats, err
		}
		messages, err := s.messageRepo.DeleteSessionMessages(ctx, sessionID)
		if err != nil {
			return stats, err
		}

		if s.index != nil {
			if err := s.index.DeleteSession(ctx, sessionID); err != nil {
				s.logger.Warn("Failed to delete session from vector index",
					"session_id", sessionID,
					"error", err,
				)
			}
		}

		stats.Sessions++
		stats.MessagesDeleted += messages
		stats.ChunksDeleted += chunks
		swept = append(swept, sessionID)

		s.logger.Info("Swept inactive session",
			"session_id", sessionID,
			"messages_deleted", messages,
			"chunks_deleted", chunks,
		)
	}

	if s.eventBus != nil && stats.Sessions > 0 {
		s.eventBus.Publish(&events.RetentionSweptEvent{
			Sessions:        swept,
			MessagesDeleted: stats.MessagesDeleted,
			ChunksDeleted:   stats.ChunksDeleted,
			EventTime:       time.Now(),
		})
	}

	return stats, nil
}

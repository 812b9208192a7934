package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
)

// captureBus 记录发布的事件供断言
type captureBus struct {
	published []events.Event
}

func (b *captureBus) Subscribe(events.EventType, events.Handler) func() { return func() {} }
func (b *captureBus) Publish(event events.Event)                        { b.published = append(b.published, event) }
func (b *captureBus) Close()                                            {}

func TestSweepOnce_RemovesInactiveSessions(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(4)

	now := time.Now().UnixMilli()
	stale := now - (48 * time.Hour).Milliseconds()

	// 过期会话
	require.NoError(t, msgRepo.SaveMessage(context.Background(), &domainMemory.Message{
		SessionID: "old", Role: domainMemory.RoleUser, Content: "old", CreatedAt: stale,
	}))
	seedChunk(t, chunkRepo, "old", 0, stale, []float32{1, 0, 0, 0})
	seedChunk(t, chunkRepo, "old", 1, stale, []float32{0, 1, 0, 0})

	// 活跃会话
	require.NoError(t, msgRepo.SaveMessage(context.Background(), &domainMemory.Message{
		SessionID: "fresh", Role: domainMemory.RoleUser, Content: "fresh", CreatedAt: now,
	}))
	seedChunk(t, chunkRepo, "fresh", 0, now, []float32{1, 0, 0, 0})

	sweeper := NewRetentionSweeper(&config.RetentionConfig{
		Window:        24 * time.Hour,
		SweepInterval: time.Hour,
	}, msgRepo, chunkRepo, nil, nil)

	stats, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, int64(1), stats.MessagesDeleted)
	assert.Equal(t, int64(2), stats.ChunksDeleted)

	// 活跃会话不受影响
	remaining, err := chunkRepo.GetChunksBySession(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	gone, err := chunkRepo.GetChunksBySession(context.Background(), "old")
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestSweepOnce_PublishesSweptSessionIDs(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(4)
	bus := &captureBus{}

	stale := time.Now().Add(-48 * time.Hour).UnixMilli()
	for _, sessionID := range []string{"old-a", "old-b"} {
		require.NoError(t, msgRepo.SaveMessage(context.Background(), &domainMemory.Message{
			SessionID: sessionID, Role: domainMemory.RoleUser, Content: "old", CreatedAt: stale,
		}))
	}

	sweeper := NewRetentionSweeper(&config.RetentionConfig{
		Window:        24 * time.Hour,
		SweepInterval: time.Hour,
	}, msgRepo, chunkRepo, nil, bus)

	stats, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sessions)

	require.Len(t, bus.published, 1)
	swept, ok := bus.published[0].(*events.RetentionSweptEvent)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"old-a", "old-b"}, swept.Sessions)
	assert.Equal(t, int64(2), swept.MessagesDeleted)
}

func TestSweepOnce_NothingToSweep(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	chunkRepo := newFakeChunkRepo(4)

	require.NoError(t, msgRepo.SaveMessage(context.Background(), &domainMemory.Message{
		SessionID: "fresh", Role: domainMemory.RoleUser, Content: "hi", CreatedAt: time.Now().UnixMilli(),
	}))

	sweeper := NewRetentionSweeper(&config.RetentionConfig{
		Window:        24 * time.Hour,
		SweepInterval: time.Hour,
	}, msgRepo, chunkRepo, nil, nil)

	stats, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sessions)
}

func TestSweeper_DisabledWindowDoesNotStart(t *testing.T) {
	sweeper := NewRetentionSweeper(&config.RetentionConfig{}, newFakeMessageRepo(), newFakeChunkRepo(4), nil, nil)

	// 未配置保留期时 Start/Stop 应为安全的空操作
	sweeper.Start(context.Background())
	sweeper.Stop()
}

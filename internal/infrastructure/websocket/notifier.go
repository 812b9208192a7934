package websocket

import (
	"log/slog"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// Notifier 将领域事件转发给 WebSocket 订阅方
type Notifier struct {
	hub    *Hub
	logger *slog.Logger
}

// NewNotifier 创建事件转发器
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{
		hub:    hub,
		logger: log.NewModuleLogger("websocket", "notifier"),
	}
}

// Register 订阅需要推送的事件类型，返回取消订阅函数
func (n *Notifier) Register(bus events.EventBus) func() {
	unsubscribers := []func(){
		bus.Subscribe(events.MessageIndexed, n),
		bus.Subscribe(events.IngestFileDetected, n),
		bus.Subscribe(events.RetentionSwept, n),
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

// HandleEvent 按事件类型构造推送负载
func (n *Notifier) HandleEvent(event events.Event) error {
	switch e := event.(type) {
	case *events.MessageIndexedEvent:
		return n.hub.BroadcastToSession(e.SessionID, map[string]any{
			"type":        string(e.Type()),
			"session_id":  e.SessionID,
			"message_id":  e.MessageID,
			"chunk_count": e.ChunkCount,
			"time":        e.Timestamp(),
		})
	case *events.IngestFileEvent:
		return n.hub.BroadcastToSession(e.SessionID, map[string]any{
			"type":       string(e.Type()),
			"session_id": e.SessionID,
			"file_path":  e.FilePath,
			"file_size":  e.FileSize,
			"time":       e.Timestamp(),
		})
	case *events.RetentionSweptEvent:
		return n.hub.BroadcastAll(map[string]any{
			"type":             string(e.Type()),
			"sessions":         e.Sessions,
			"messages_deleted": e.MessagesDeleted,
			"chunks_deleted":   e.ChunksDeleted,
			"time":             e.Timestamp(),
		})
	default:
		n.logger.Debug("Ignoring event", "type", event.Type())
		return nil
	}
}

var _ events.Handler = (*Notifier)(nil)

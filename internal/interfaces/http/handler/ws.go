package handler

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
	infraWS "github.com/samlazrak/LocalContextMCP/internal/infrastructure/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 本地服务，不校验来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler WebSocket 事件订阅处理器
type WSHandler struct {
	hub    *infraWS.Hub
	logger *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *infraWS.Hub) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: log.NewModuleLogger("http", "websocket"),
	}
}

// Subscribe 升级连接并订阅事件推送
// session_id 为空时订阅全部会话
func (h *WSHandler) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &infraWS.Connection{
		SessionID: c.Query("session_id"),
		Send:      make(chan []byte, wsSendBuffer),
	}
	h.hub.Register(client)

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// writePump 将 Hub 推送写入连接
func (h *WSHandler) writePump(conn *websocket.Conn, client *infraWS.Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只用于探测连接关闭，入站消息全部丢弃
func (h *WSHandler) readPump(conn *websocket.Conn, client *infraWS.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

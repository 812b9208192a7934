// Package websocket 管理事件推送的 WebSocket 连接
package websocket

import (
	"encoding/json"
	"sync"
)

// 空会话标识订阅全部会话
const allSessions = ""

// Hub WebSocket 连接管理中心
// 连接按会话分组，索引与清理事件推送给订阅方
type Hub struct {
	// 按会话分组的连接
	sessions map[string]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection WebSocket 连接
// SessionID 为空时接收全部会话的事件
type Connection struct {
	SessionID string
	Send      chan []byte
}

// Message 消息
type Message struct {
	SessionID string
	Data      []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[*Connection]bool)
			}
			h.sessions[conn.SessionID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if group, ok := h.sessions[conn.SessionID]; ok {
				if _, ok := group[conn]; ok {
					delete(group, conn)
					close(conn.Send)
					if len(group) == 0 {
						delete(h.sessions, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.deliver(msg.SessionID, msg.Data)
			if msg.SessionID != allSessions {
				// 订阅全部会话的连接同样收到定向消息
				h.deliver(allSessions, msg.Data)
			}
			h.mu.Unlock()
		}
	}
}

// deliver 投递给分组内的所有连接，发送缓冲满则断开
func (h *Hub) deliver(sessionID string, data []byte) {
	group, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	for conn := range group {
		select {
		case conn.Send <- data:
		default:
			close(conn.Send)
			delete(group, conn)
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession 向指定会话的订阅方广播消息
func (h *Hub) BroadcastToSession(sessionID string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		SessionID: sessionID,
		Data:      jsonData,
	}
	return nil
}

// BroadcastAll 向全部订阅方广播消息
func (h *Hub) BroadcastAll(data interface{}) error {
	return h.BroadcastToSession(allSessions, data)
}

package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/purefi/playground-sdk-go/client"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// wsClient 单个 WebSocket 连接，写操作串行化
type wsClient struct {
	conn   *websocket.Conn
	sendMu sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) ping() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// hub 按会话分组的预览推送
type hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	logger  client.Logger
}

func newHub(logger client.Logger) *hub {
	return &hub{clients: make(map[string]map[*wsClient]struct{}), logger: logger}
}

func (h *hub) add(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *hub) remove(sessionID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[sessionID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, sessionID)
	}
}

// broadcast 向会话的所有连接推送消息；写失败的连接会被关闭
func (h *hub) broadcast(sessionID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal push message failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(data); err != nil {
			h.logger.Debug("push failed, dropping client", "session", sessionID, "error", err)
			_ = c.conn.Close()
			h.remove(sessionID, c)
		}
	}
}

// closeAll 关闭全部连接（服务关闭时）
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			_ = c.conn.Close()
		}
		delete(h.clients, id)
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

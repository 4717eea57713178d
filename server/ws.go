package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// handleSessionWS 订阅会话预览；连接后立即推送当前快照
//
// 客户端也可以通过该连接发送事件（与 POST /events 的请求体相同）。
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.store.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{conn: conn}
	s.hub.add(id, c)
	defer func() {
		s.hub.remove(id, c)
		_ = conn.Close()
	}()

	if err := s.sendJSON(c, pushMessage{Type: "preview", Session: viewOf(session)}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(c, done)

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "session", id, "error", err)
			}
			return
		}
		s.handleWSEvents(c, id, data)
	}
}

// wsError 通过 WebSocket 返回的错误
type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) handleWSEvents(c *wsClient, id string, data []byte) {
	var batch eventBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		_ = s.sendJSON(c, wsError{Type: "error", Message: err.Error()})
		return
	}
	session, err := s.applyEvents(id, batch)
	if err != nil {
		_ = s.sendJSON(c, wsError{Type: "error", Message: err.Error()})
		if session, err = s.store.Get(id); err != nil {
			return
		}
	}
	s.publish(session)
}

func (s *Server) sendJSON(c *wsClient, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.send(data)
}

func (s *Server) keepAlive(c *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

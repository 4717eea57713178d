package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/purefi/playground-sdk-go/services/payload"
)

// ErrSessionNotFound 会话不存在或已被淘汰
var ErrSessionNotFound = errors.New("session not found")

// SessionStore 内存会话存储
//
// 会话快照不可变，所有修改都在 mu 下通过 payload.TransitionWith 完成。
// 超出 limit 时淘汰最早创建的会话。
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]payload.Session
	order    []string
	limit    int
	registry *payload.Registry
}

// NewSessionStore 创建会话存储，limit <= 0 表示不限制
func NewSessionStore(registry *payload.Registry, limit int) *SessionStore {
	if registry == nil {
		registry = payload.DefaultRegistry
	}
	return &SessionStore{
		sessions: make(map[string]payload.Session),
		limit:    limit,
		registry: registry,
	}
}

// Create 创建新会话
func (s *SessionStore) Create(issuerURL string) payload.Session {
	session := payload.NewSession(uuid.NewString(), issuerURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	for s.limit > 0 && len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, oldest)
	}
	return session
}

// Get 读取会话快照
func (s *SessionStore) Get(id string) (payload.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return payload.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Apply 对会话应用事件并保存新快照；失败时会话保持不变
func (s *SessionStore) Apply(id string, event payload.Event) (payload.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sessions[id]
	if !ok {
		return payload.Session{}, ErrSessionNotFound
	}
	next, err := payload.TransitionWith(s.registry, old, event)
	if err != nil {
		return old, err
	}
	s.sessions[id] = next
	return next, nil
}

// Delete 删除会话
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len 当前会话数
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

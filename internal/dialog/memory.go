package dialog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore — хранилище в памяти процесса. Диалоги теряются при рестарте.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]map[Kind]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]map[Kind]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, userID int64, kind Kind) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID][kind]
	if !ok {
		return nil, ErrNoSession
	}
	return clone(s), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	byKind, ok := m.sessions[s.UserID]
	if !ok {
		byKind = make(map[Kind]*Session)
		m.sessions[s.UserID] = byKind
	}
	byKind[s.Kind] = clone(s)
	return nil
}

func (m *MemoryStore) End(_ context.Context, userID int64, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byKind, ok := m.sessions[userID]; ok {
		delete(byKind, kind)
		if len(byKind) == 0 {
			delete(m.sessions, userID)
		}
	}
	return nil
}

func (m *MemoryStore) Active(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Session
	for _, s := range m.sessions[userID] {
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNoSession
	}
	return clone(latest), nil
}

func (m *MemoryStore) EndAll(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// clone защищает сохранённую сессию от изменений вызывающим кодом.
func clone(s *Session) *Session {
	cp := *s
	cp.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		cp.Data[k] = v
	}
	return &cp
}

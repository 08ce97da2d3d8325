package storage

import (
	"sync"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
)

// MemoryStore keeps the last saved collection in memory. Used for tests and
// ephemeral runs where nothing should survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []*model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *MemoryStore) Save(sessions []*model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make([]*model.Session, len(sessions))
	for i, s := range sessions {
		m.sessions[i] = s.Clone()
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// MemoryKV is the in-memory KV counterpart.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}

package storage

import (
	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
)

// Store persists the session collection wholesale. The services hold the
// authoritative in-memory copy; Load is called once at startup and Save
// rewrites the entire collection on every mutation. There is no partial or
// incremental persistence.
type Store interface {
	Load() ([]*model.Session, error)
	Save(sessions []*model.Session) error
	Close() error
}

// KV is string key-value persistence for small settings: the stored API key
// and the per-identity credit counters.
type KV interface {
	// Get returns the stored value, or ok=false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

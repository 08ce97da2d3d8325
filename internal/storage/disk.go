package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"
)

const (
	sessionsFile = "chat-sessions.json"
	kvFile       = "kv.json"
)

// DiskStore persists the whole session collection as a single JSON file,
// rewritten atomically on every Save.
type DiskStore struct {
	dataDir string
	mu      sync.Mutex
}

func NewDiskStore(dataDir string) (*DiskStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	logger.Infof("Disk storage initialized at %s", dataDir)
	return &DiskStore{dataDir: dataDir}, nil
}

func (d *DiskStore) Load() ([]*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := filepath.Join(d.dataDir, sessionsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return sessions, nil
}

func (d *DiskStore) Save(sessions []*model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return d.writeAtomic(filepath.Join(d.dataDir, sessionsFile), data)
}

func (d *DiskStore) Close() error {
	return nil
}

func (d *DiskStore) writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// DiskKV stores its map in one JSON file next to the session collection.
type DiskKV struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

func NewDiskKV(dataDir string) (*DiskKV, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	kv := &DiskKV{
		path:   filepath.Join(dataDir, kvFile),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(kv.path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := json.Unmarshal(data, &kv.values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return kv, nil
}

func (k *DiskKV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, ok := k.values[key]
	return v, ok, nil
}

func (k *DiskKV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.values[key] = value

	data, err := json.MarshalIndent(k.values, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	tempPath := k.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, k.path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (k *DiskKV) Close() error {
	return nil
}

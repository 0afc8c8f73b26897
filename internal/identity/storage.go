package identity

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Storage persists auth items such as the session. A missing key reads as "".
type Storage interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryStorage is a process local [Storage].
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[key], nil
}

func (m *MemoryStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// FallbackStorage writes through to a durable store and falls back to memory when it fails.
//
// Failures are logged as warnings and never returned. A nil durable store behaves as memory only.
type FallbackStorage struct {
	durable Storage
	memory  *MemoryStorage
	logger  *log.Logger
}

// NewFallbackStorage wraps durable.
func NewFallbackStorage(durable Storage, logger *log.Logger) *FallbackStorage {
	return &FallbackStorage{durable: durable, memory: NewMemoryStorage(), logger: logger}
}

func (f *FallbackStorage) GetItem(key string) (string, error) {
	if f.durable != nil {
		v, err := f.durable.GetItem(key)
		if err == nil {
			return v, nil
		}
		f.warn("storage get failed", key, err)
	}
	return f.memory.GetItem(key)
}

func (f *FallbackStorage) SetItem(key, value string) error {
	if f.durable != nil {
		err := f.durable.SetItem(key, value)
		if err == nil {
			return nil
		}
		f.warn("storage set failed", key, err)
	}
	return f.memory.SetItem(key, value)
}

func (f *FallbackStorage) RemoveItem(key string) error {
	if f.durable != nil {
		err := f.durable.RemoveItem(key)
		if err == nil {
			// Drop any value written while the durable store was failing.
			return f.memory.RemoveItem(key)
		}
		f.warn("storage remove failed", key, err)
	}
	return f.memory.RemoveItem(key)
}

func (f *FallbackStorage) warn(msg, key string, err error) {
	if f.logger != nil {
		f.logger.Warn(msg, "key", key, "error", err)
	}
}

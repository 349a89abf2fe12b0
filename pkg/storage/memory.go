package storage

import (
	"sync"

	"persistentstore/pkg/domain"
)

// MemoryStorage keeps values in a map. It is safe for concurrent use.
type MemoryStorage[T any] struct {
	mu     sync.RWMutex
	values map[string]T
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage[T any]() *MemoryStorage[T] {
	return &MemoryStorage[T]{values: make(map[string]T)}
}

func (m *MemoryStorage[T]) GetValue(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage[T]) SetValue(key string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStorage[T]) DeleteValue(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Keys returns the stored keys in no particular order.
func (m *MemoryStorage[T]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out
}

// Compile-time assertion that MemoryStorage implements domain.Storage.
var _ domain.Storage[string] = (*MemoryStorage[string])(nil)

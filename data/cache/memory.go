package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryCache is an in-process store with a hard capacity cap, evicting the
// oldest inserted entry first. Used in tests and as a redis-less fallback.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		if m.capacity > 0 && len(m.entries) >= m.capacity {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.entries, oldest)
		}
		m.order = append(m.order, key)
	}
	m.entries[key] = value

	return nil
}

func (m *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, key := range m.order {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	m.order = kept

	return nil
}

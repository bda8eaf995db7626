package lookupcache

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local store for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]Entry), now: now}
}

func (m *MemoryStore) Kind() string {
	return "memory"
}

func (m *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return Entry{}, false, nil
	}
	if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(m.now()) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Entry{}, false, nil
	}
	return Entry{Value: append([]byte(nil), entry.Value...), ExpiresAt: entry.ExpiresAt}, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl < 0 {
		return ErrNegativeTTL
	}

	entry := Entry{Value: append([]byte(nil), value...)}
	if ttl != NoExpiry {
		entry.ExpiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

package testing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

// MockObjectStore is an in-memory object store satisfying the
// content cache's ObjectClient interface.
type MockObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	err     error
	uploads int
}

// NewMockObjectStore creates an empty object store.
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{objects: make(map[string][]byte)}
}

// SetError makes every subsequent call fail with err.
func (m *MockObjectStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Keys returns all stored keys, sorted.
func (m *MockObjectStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Uploads returns how many uploads succeeded.
func (m *MockObjectStore) Uploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}

// Upload stores the body under key.
func (m *MockObjectStore) Upload(ctx context.Context, key string, body *bytes.Reader, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}
	m.objects[key] = data
	m.uploads++
	return nil
}

// Download returns the object or an error wrapping fs.ErrNotExist.
func (m *MockObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// ListKeys returns keys starting with prefix.
func (m *MockObjectStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes keys; missing keys are ignored.
func (m *MockObjectStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

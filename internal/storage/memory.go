package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps objects in process. Selected with storage.driver=memory for
// local runs without an object store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	base    string
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore(publicBase string) *MemoryStore {
	return &MemoryStore{objects: map[string]memObject{}, base: publicBase}
}

func (m *MemoryStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return "", err
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("put object %q: got %d bytes, want %d", key, len(data), size)
	}
	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType}
	m.mu.Unlock()
	if m.base == "" {
		return "", nil
	}
	return m.base + "/" + escapeKey(key), nil
}

func (m *MemoryStore) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	o, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(o.data)), int64(len(o.data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s?expires=%d", escapeKey(key), time.Now().Add(ttl).Unix()), nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

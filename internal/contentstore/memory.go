package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"revsite/internal/site"
)

// MemoryStore is an in-memory implementation of the ContentStore interface,
// useful for testing. This implementation is safe for concurrent use.
type MemoryStore struct {
	content map[string][]byte // hash -> bytes
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{content: make(map[string][]byte)}
}

func (m *MemoryStore) StatContent(ctx context.Context, key string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[key]
	return int64(len(data)), ok, nil
}

func (m *MemoryStore) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("%w: expected %d bytes, got %d", site.ErrIntegrity, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.content[key]; ok {
		if len(existing) != len(data) {
			return fmt.Errorf("%w: %s holds %d bytes, source has %d", site.ErrIntegrity, key, len(existing), len(data))
		}
		return nil
	}
	m.content[key] = data
	return nil
}

func (m *MemoryStore) GetContent(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[key]
	if !ok {
		return fmt.Errorf("%w: %s", site.ErrContentNotFound, key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryStore) RemoveContent(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.content[key]; !ok {
		return fmt.Errorf("%w: %s", site.ErrContentNotFound, key)
	}
	delete(m.content, key)
	return nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// Compile-time check that MemoryStore implements site.ContentStore interface
var _ site.ContentStore = (*MemoryStore)(nil)

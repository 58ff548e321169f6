package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     map[string]any
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a volatile Store implementation keeping documents in a
// process-local map. Expired entries are dropped lazily on read. It is safe
// for concurrent access and best suited for tests and single-process
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	metrics map[string]memoryEntry
	lists   map[string][]map[string]any
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: map[string]memoryEntry{},
		lists:   map[string][]map[string]any{},
		now:     time.Now,
	}
}

// StoreMetrics implements Store.
func (s *MemoryStore) StoreMetrics(_ context.Context, key string, value map[string]any, ttl time.Duration) error {
	entry := memoryEntry{value: cloneDoc(value)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.metrics[key] = entry
	s.mu.Unlock()
	return nil
}

// GetMetrics returns the stored document, or nil when absent or expired.
func (s *MemoryStore) GetMetrics(_ context.Context, key string) (map[string]any, error) {
	s.mu.RLock()
	entry, ok := s.metrics[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.metrics, key)
		s.mu.Unlock()
		return nil, nil
	}
	return cloneDoc(entry.value), nil
}

// AddToList implements Store.
func (s *MemoryStore) AddToList(_ context.Context, key string, value map[string]any) error {
	s.mu.Lock()
	s.lists[key] = append(s.lists[key], cloneDoc(value))
	s.mu.Unlock()
	return nil
}

// GetList implements Store.
func (s *MemoryStore) GetList(_ context.Context, key string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[key]
	out := make([]map[string]any, len(list))
	for i, doc := range list {
		out[i] = cloneDoc(doc)
	}
	return out, nil
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

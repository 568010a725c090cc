package objectstore

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/liftprogress/pkg/metrics"
)

// MemoryStore keeps objects in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte) error {
	k, err := cleanKey(key)
	if err == nil {
		s.mu.Lock()
		s.objects[k] = slices.Clone(body)
		s.mu.Unlock()
	}
	metrics.RecordStoreOperation("put", err)
	return err
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		metrics.RecordStoreOperation("get", err)
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.objects[k]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordStoreOperation("get", ErrNotFound)
		return nil, ErrNotFound
	}
	metrics.RecordStoreOperation("get", nil)
	return slices.Clone(b), nil
}

// Keys returns every stored key in order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

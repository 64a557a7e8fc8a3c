package storage

import (
	"slices"
	"sync"
)

// MemoryKVStore is an in-process KVStore. The app falls back to it when the
// configured store cannot be opened, so lists still work for the session.
type MemoryKVStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKVStore returns an empty MemoryKVStore.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value, or ErrKeyNotFound.
func (s *MemoryKVStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (s *MemoryKVStore) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

// Close implements KVStore.
func (s *MemoryKVStore) Close() error { return nil }

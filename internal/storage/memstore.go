package storage

import (
	"fmt"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	saves int
}

func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[string][]byte),
	}
}

func (s *MemStore) SaveMetadata(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[key] = buf
	s.saves++
	return nil
}

func (s *MemStore) LoadMetadata(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.blobs[key]
	if !exists {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}

	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

// Saves reports how many times SaveMetadata ran.
func (s *MemStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *MemStore) Close() error {
	return nil
}

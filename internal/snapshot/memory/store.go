// Package memory stores snapshots in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps raw snapshots keyed by content hash.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates a new in-memory snapshot store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put persists the body and returns a pseudo URI.
func (s *Store) Put(_ context.Context, hash, _ string, body []byte) (string, error) {
	if hash == "" {
		return "", fmt.Errorf("hash is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = append([]byte(nil), body...)
	return fmt.Sprintf("memory://%s", hash), nil
}

// Get returns a stored snapshot for inspection in tests.
func (s *Store) Get(hash string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.data[hash]
	return body, ok
}

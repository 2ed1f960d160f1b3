package memory

import (
	"context"
	"sync"

	"canopy/internal/domain"
)

// Store is an in-process snapshot store. Selected with
// STORAGE_BACKEND=memory; also used by tests.
type Store struct {
	mu   sync.RWMutex
	data []byte
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *Store) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *Store) Close() error {
	return nil
}

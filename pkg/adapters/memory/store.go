package memory

import (
	"context"
	"sync"

	"github.com/aretw0/rowflow/pkg/domain"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Result
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Result),
	}
}

// Save persists a copy of the result, so later changes by the caller are not seen.
func (s *Store) Save(ctx context.Context, rowID string, result *domain.Result) error {
	copied := result.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rowID] = copied
	return nil
}

// Load returns a copy of the stored result.
func (s *Store) Load(ctx context.Context, rowID string) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.data[rowID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return result.Clone(), nil
}

// Delete removes the result.
func (s *Store) Delete(ctx context.Context, rowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, rowID)
	return nil
}

// List returns the tracked rows.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]string, 0, len(s.data))
	for id := range s.data {
		rows = append(rows, id)
	}
	return rows, nil
}

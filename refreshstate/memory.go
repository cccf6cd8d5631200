package refreshstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and single-process embedding.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put stores rec keyed by its refresh identifier.
func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RefreshID] = rec
	return nil
}

// Get returns the live record for refreshID, treating expired entries as
// absent.
func (s *MemoryStore) Get(_ context.Context, refreshID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[refreshID]
	if !ok || !rec.ExpiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

// Delete removes the record for refreshID.
func (s *MemoryStore) Delete(_ context.Context, refreshID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, refreshID)
	return nil
}

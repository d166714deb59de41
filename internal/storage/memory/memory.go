package memory

import (
	"context"
	"sync"

	"ressarcimento/internal/core"
	"ressarcimento/internal/ledger"
)

var _ ledger.Repository = (*Store)(nil)

// Store keeps records in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.Mutex
	items []core.Record
	saves int
}

func New(seed ...core.Record) *Store {
	return &Store{items: append([]core.Record(nil), seed...)}
}

// Load returns a copy of the stored records.
func (s *Store) Load(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record{}, s.items...), nil
}

// Save replaces the stored records.
func (s *Store) Save(_ context.Context, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Record{}, records...)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Package memstore provides an in-process [progress.Store]. Values are lost
// when the process exits.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/parla/internal/progress"
)

var _ progress.Store = (*Store)(nil)

// Store is a map-backed store. The zero value is ready to use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store { return &Store{} }

// Get implements [progress.Store].
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements [progress.Store].
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = slices.Clone(value)
	return nil
}

// Package memstore provides an in-memory store, used in tests and by the
// in-memory loader module.
package memstore

import (
	"context"
	"sync"

	"github.com/blockforge/clipio/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store. Keys list in insertion order.
type Store struct {
	mu      sync.RWMutex
	keys    []string
	objects map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Put sets the data for a key.
// The data is copied to prevent caller mutations from affecting the store.
func (s *Store) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.objects[key] = append([]byte(nil), data...)
}

// Read returns a copy of the object at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// List returns matching keys in insertion order.
func (s *Store) List(ctx context.Context, prefix, ext string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = store.Dir(prefix)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for _, key := range s.keys {
		if store.Matches(key, prefix, ext) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

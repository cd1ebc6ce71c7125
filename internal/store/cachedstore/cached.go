package cachedstore

import (
	"context"

	"github.com/blockforge/clipio/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store wraps another Store and caches object reads. Listings always go
// to the underlying store so new saves are visible.
type Store struct {
	underlying store.Store
	backend    Backend
}

// New creates a new cached store wrapping the given store.
func New(underlying store.Store, backend Backend) *Store {
	return &Store{
		underlying: underlying,
		backend:    backend,
	}
}

// Read returns the object at key, checking the cache first.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.backend.Get(key); ok {
		return data, nil
	}

	data, err := s.underlying.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	s.backend.Set(key, data)
	return data, nil
}

// List delegates to the underlying store.
func (s *Store) List(ctx context.Context, prefix, ext string) ([]string, error) {
	return s.underlying.List(ctx, prefix, ext)
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	return s.backend.Stats()
}

// Package gcsstore implements a Google Cloud Storage backend.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/blockforge/clipio/internal/codec"
	"github.com/blockforge/clipio/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a Google Cloud Storage backend.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	codec  codec.Codec
}

// New creates a new GCS store.
// The bucket must already exist.
// The codec handles decompression.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Store{
		client: client,
		bucket: client.Bucket(bucketName),
		codec:  c,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = store.Dir(prefix)
	}
}

// Read reads and decompresses the object at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	// Check for cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := s.bucket.Object(s.objectKey(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()

	decompressor, err := s.codec.Reader(reader)
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer decompressor.Close()

	data, err := io.ReadAll(decompressor)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", key, err)
	}
	return data, nil
}

// List returns the objects directly under prefix in bucket listing order.
func (s *Store) List(ctx context.Context, prefix, ext string) ([]string, error) {
	dir := store.Dir(prefix)
	it := s.bucket.Objects(ctx, &storage.Query{
		Prefix:    s.objectKey(dir),
		Delimiter: "/",
	})

	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		// Synthetic directory entries carry only Prefix.
		if attrs.Name == "" {
			continue
		}
		key := s.relKey(attrs.Name)
		if store.Matches(key, dir, ext) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return s.client.Close()
}

// objectKey returns the full object name for a key.
func (s *Store) objectKey(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/")
}

// relKey strips the store prefix from an object name.
func (s *Store) relKey(name string) string {
	return strings.TrimPrefix(name, s.prefix)
}

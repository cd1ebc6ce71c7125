// Package diskstore implements a filesystem storage backend rooted at a
// directory, such as the schematic save directory.
package diskstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/blockforge/clipio/internal/codec"
	"github.com/blockforge/clipio/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a disk-based filesystem storage backend.
type Store struct {
	root  string
	codec codec.Codec
}

// New creates a new disk store rooted at the given directory.
// The directory must exist. The codec handles decompression.
func New(root string, codec codec.Codec) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &Store{
		root:  root,
		codec: codec,
	}, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Read reads and decompresses the file at key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	compressed, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	reader, err := s.codec.Reader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", key, err)
	}
	return data, nil
}

// List returns the regular files directly under prefix in directory
// order. A missing directory lists as empty.
func (s *Store) List(ctx context.Context, prefix, ext string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix = store.Dir(prefix)
	dir, err := s.path(prefix)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	defer f.Close()

	// ReadDir on the handle keeps the directory's own order.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var keys []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		key := prefix + e.Name()
		if store.Matches(key, prefix, ext) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// path maps a key to a file under root, rejecting keys that escape it.
func (s *Store) path(key string) (string, error) {
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("store: key %q escapes root", key)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+key))), nil
}

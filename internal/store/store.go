// Package store defines the object storage interface clipboards are read
// from and listed in. Keys are slash-separated paths relative to the
// store root.
package store

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned when an object does not exist in the store.
var ErrNotFound = errors.New("store: object not found")

// Store defines the interface for storage backends.
type Store interface {
	// Read returns the content of the object at key, decompressed by the
	// store's codec.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns the keys of the objects directly under prefix whose
	// name ends in "."+ext, in the backend's listing order. An empty ext
	// matches every object.
	List(ctx context.Context, prefix, ext string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Matches reports whether key is directly under prefix and carries ext.
// prefix is either empty or ends with "/".
func Matches(key, prefix, ext string) bool {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return false
	}
	if ext == "" {
		return true
	}
	return strings.EqualFold(path.Ext(rest), "."+ext)
}

// Dir normalizes a listing prefix to end with "/" unless it is empty.
func Dir(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

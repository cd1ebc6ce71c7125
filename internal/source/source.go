// Package source provides the byte sources a lazy holder decodes from.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/store"
)

// ByteSource opens a fresh stream over the same bytes on every call.
type ByteSource interface {
	// Open returns a new stream positioned at offset 0.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Size returns the length in bytes, or -1 if unknown.
	Size() int64
}

// Bytes is an in-memory source. Archive entries are buffered into it.
type Bytes []byte

// Open returns a reader over the buffer.
func (b Bytes) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Size returns the buffer length.
func (b Bytes) Size() int64 { return int64(len(b)) }

// File is a source backed by a file path.
type File string

// Open opens the file.
func (f File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(string(f))
}

// Size stats the file, returning -1 on error.
func (f File) Size() int64 {
	info, err := os.Stat(string(f))
	if err != nil {
		return -1
	}
	return info.Size()
}

// Object is a source backed by a key in a store.
type Object struct {
	Store store.Store
	Key   string
}

// Open reads the whole object from the store.
func (o Object) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := o.Store.Read(ctx, o.Key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", o.Key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Size is unknown until the object is read.
func (o Object) Size() int64 { return -1 }

// Counted wraps a source and reports the bytes read from it.
func Counted(src ByteSource, collector stats.Collector) ByteSource {
	if collector == nil {
		return src
	}
	return counted{src: src, collector: collector}
}

type counted struct {
	src       ByteSource
	collector stats.Collector
}

func (c counted) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: rc, collector: c.collector}, nil
}

func (c counted) Size() int64 { return c.src.Size() }

type countingReader struct {
	io.ReadCloser
	collector stats.Collector
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.collector.IncCounter(stats.MetricBytesRead, int64(n))
	}
	return n, err
}

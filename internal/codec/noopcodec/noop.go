// Package noopcodec provides a pass-through codec for uncompressed payloads.
package noopcodec

import (
	"io"

	"github.com/blockforge/clipio/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements no compression.
type Codec struct{}

// New returns a new no-op codec.
func New() *Codec {
	return &Codec{}
}

// Reader returns r as a ReadCloser. Closing it never closes r: the
// caller that opened the transport stays responsible for it.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Writer returns w as a WriteCloser whose Close flushes w when it is
// buffered but leaves the transport open.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return &passthrough{w}, nil
}

// Extension returns empty string.
func (c *Codec) Extension() string {
	return ""
}

type passthrough struct {
	io.Writer
}

type flusher interface {
	Flush() error
}

func (p *passthrough) Close() error {
	if f, ok := p.Writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

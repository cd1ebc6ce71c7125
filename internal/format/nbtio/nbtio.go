// Package nbtio holds the gzip + tag-tree stream plumbing shared by the
// tag-tree based formats.
package nbtio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	"github.com/blockforge/clipio/internal/codec/autocodec"
)

// TagCompound is the tag-tree type id of a compound tag.
const TagCompound = 0x0A

// DefaultLevel is the gzip level used when a writer adds compression.
const DefaultLevel = 8

// Chain closes streams in reverse order of acquisition, so compression
// layers flush before the transport underneath them closes.
type Chain []io.Closer

// Push adds c to the chain. Nil closers are ignored.
func (c *Chain) Push(cl io.Closer) {
	if cl != nil {
		*c = append(*c, cl)
	}
}

// Close closes every stream, innermost first, even when some fail.
func (c *Chain) Close() error {
	var errs []error
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	*c = nil
	return errors.Join(errs...)
}

// PushTransport adds the transport to the chain when it can be closed.
func (c *Chain) PushTransport(v any) {
	if cl, ok := v.(io.Closer); ok {
		c.Push(cl)
	}
}

// Writer is a tag-tree encoder over a gzip stream.
type Writer struct {
	Encoder *nbt.Encoder
	buf     *bufio.Writer
	chain   Chain
}

// NewWriter wraps w with gzip (unless w already compresses) and a buffered
// tag-tree encoder.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	out := &Writer{}
	out.chain.PushTransport(w)

	sink := w
	if !autocodec.IsCompressing(w) {
		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("creating gzip writer: %w", err)
		}
		out.chain.Push(gz)
		sink = gz
	}
	out.buf = bufio.NewWriter(sink)
	out.chain.Push(flushCloser{out.buf})
	out.Encoder = nbt.NewEncoder(out.buf)
	return out, nil
}

// Close flushes the encoder buffer, then gzip, then closes the transport.
func (w *Writer) Close() error {
	return w.chain.Close()
}

type flushCloser struct {
	*bufio.Writer
}

func (f flushCloser) Close() error { return f.Flush() }

// Reader is a tag-tree decoder over a gzip stream.
type Reader struct {
	Decoder *nbt.Decoder
	chain   Chain
}

// NewReader wraps r with gzip and a tag-tree decoder. The gzip header is
// validated immediately.
func NewReader(r io.Reader) (*Reader, error) {
	out := &Reader{}
	out.chain.PushTransport(r)
	gz, err := gzip.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	out.chain.Push(gz)
	out.Decoder = nbt.NewDecoder(bufio.NewReader(gz))
	return out, nil
}

// Close closes the gzip stream and then the transport.
func (r *Reader) Close() error {
	return r.chain.Close()
}

// RootName reads the type byte and name of the root tag from an
// uncompressed tag-tree stream. ok is false when the root is not a compound.
func RootName(r io.Reader) (name string, ok bool, err error) {
	var head [3]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return "", false, err
	}
	if head[0] != TagCompound {
		return "", false, nil
	}
	n := binary.BigEndian.Uint16(head[1:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, err
	}
	return string(buf), true, nil
}

// HasRootName reports whether the gzip stream r holds a tag tree whose
// root compound is named want. Any error counts as no match.
func HasRootName(r io.Reader, want string) bool {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return false
	}
	defer gz.Close()
	name, ok, err := RootName(gz)
	return err == nil && ok && name == want
}

// Package autocodec picks a codec from stream magic bytes or by name, and
// recognizes writers that already compress.
package autocodec

import (
	"bufio"
	"bytes"
	stdgzip "compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/blockforge/clipio/internal/codec"
	"github.com/blockforge/clipio/internal/codec/gzipcodec"
	"github.com/blockforge/clipio/internal/codec/lz4codec"
	"github.com/blockforge/clipio/internal/codec/noopcodec"
	"github.com/blockforge/clipio/internal/codec/s2codec"
	"github.com/blockforge/clipio/internal/codec/zstdcodec"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicS2   = []byte{0xff, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
	magicSnap = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// PeekSize is the number of leading bytes Sniff needs.
const PeekSize = 10

// Sniff returns the codec whose frame magic prefixes peek, or nil when the
// bytes do not start a known compressed stream.
func Sniff(peek []byte) codec.Codec {
	switch {
	case bytes.HasPrefix(peek, magicGzip):
		return gzipcodec.New()
	case bytes.HasPrefix(peek, magicZstd):
		return zstdcodec.New()
	case bytes.HasPrefix(peek, magicLZ4):
		return lz4codec.New()
	case bytes.HasPrefix(peek, magicS2), bytes.HasPrefix(peek, magicSnap):
		return s2codec.New()
	default:
		return nil
	}
}

// Unwrap peeks at br and, if it starts with a known compressed frame,
// returns a decompressing reader over it. Otherwise br is returned as is.
// Only one layer is removed.
func Unwrap(br *bufio.Reader) (io.ReadCloser, error) {
	peek, err := br.Peek(PeekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	c := Sniff(peek)
	if c == nil {
		return io.NopCloser(br), nil
	}
	return c.Reader(br)
}

// IsCompressing reports whether w already compresses its input.
func IsCompressing(w io.Writer) bool {
	switch t := w.(type) {
	case *gzip.Writer, *stdgzip.Writer, *flate.Writer, *zstd.Encoder, *lz4.Writer, *s2.Writer:
		return true
	case codec.Compressing:
		return t.Compressing()
	default:
		return false
	}
}

// ByName returns the codec for a name or extension such as "gzip", "gz",
// "zstd", "lz4", "s2" or "none".
func ByName(name string) (codec.Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return noopcodec.New(), nil
	case "gz", "gzip":
		return gzipcodec.New(), nil
	case "zst", "zstd":
		return zstdcodec.New(), nil
	case "lz4":
		return lz4codec.New(), nil
	case "s2", "snappy":
		return s2codec.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}
}

// Package format defines the clipboard format abstraction: a Format names a
// codec pair (reader and writer factories), its aliases, its default file
// extension and a cheap detection predicate.
package format

import (
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/blockforge/clipio/internal/volume"
)

// ErrUnsupported is returned when a format does not implement an operation,
// such as reading a write-only format.
var ErrUnsupported = errors.New("format: unsupported operation")

// Capability describes what a format can do.
type Capability uint8

const (
	// CapRead means NewReader produces a working reader.
	CapRead Capability = 1 << iota
	// CapWrite means NewWriter produces a working writer.
	CapWrite
	// CapWorldContext means Read uses the world context to fully
	// materialize the clipboard.
	CapWorldContext
	// CapRandomAccess means uncompressed files support O(1) block reads.
	CapRandomAccess
)

// Has reports whether all bits of o are set in c.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	var parts []string
	if c.Has(CapRead) {
		parts = append(parts, "read")
	}
	if c.Has(CapWrite) {
		parts = append(parts, "write")
	}
	if c.Has(CapWorldContext) {
		parts = append(parts, "world-context")
	}
	if c.Has(CapRandomAccess) {
		parts = append(parts, "random-access")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// WorldContext identifies the world and actor a clipboard is loaded for.
type WorldContext struct {
	World string
	Actor uuid.UUID
}

// Reader decodes one clipboard from the stream it was created with.
type Reader interface {
	// Read decodes the clipboard. wc is nil for context-free reads.
	Read(wc *WorldContext) (*volume.Volume, error)

	// Close releases the reader and every stream it wrapped.
	Close() error
}

// Writer encodes one clipboard to the stream it was created with.
type Writer interface {
	Write(v *volume.Volume) error

	// Close flushes and releases all wrapping streams, innermost
	// compression first.
	Close() error
}

// Format is a clipboard file format.
type Format interface {
	// Name returns the canonical upper-case name, e.g. "SCHEMATIC".
	Name() string

	// Aliases returns the lower-case aliases in declaration order.
	Aliases() []string

	// Extension returns the default file extension without a dot.
	Extension() string

	// Detect reports whether the file at path is in this format. It must be
	// cheap: a header sniff or a suffix check.
	Detect(path string) bool

	// Capabilities describes what the format supports.
	Capabilities() Capability

	// NewReader wraps r with the format's framing.
	NewReader(r io.Reader) (Reader, error)

	// NewWriter wraps w with the format's framing.
	NewWriter(w io.Writer) (Writer, error)
}

// Read decodes one clipboard from r using f, passing wc only when the
// format declares CapWorldContext. r is closed exactly once when it is an
// io.Closer, whether or not decoding succeeds.
func Read(f Format, r io.Reader, wc *WorldContext) (v *volume.Volume, err error) {
	reader, err := f.NewReader(r)
	if err != nil {
		return nil, errors.Join(err, closeTransport(r))
	}
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	if !f.Capabilities().Has(CapWorldContext) {
		wc = nil
	}
	return reader.Read(wc)
}

// Write encodes v to w using f and closes the writer. Like Read, it
// closes w exactly once when w is an io.Closer.
func Write(f Format, w io.Writer, v *volume.Volume) (err error) {
	writer, err := f.NewWriter(w)
	if err != nil {
		return errors.Join(err, closeTransport(w))
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()
	return writer.Write(v)
}

// HasSuffix reports whether path ends with "."+ext for any of exts,
// ignoring case.
func HasSuffix(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}

// closeTransport closes a transport a format constructor rejected.
// Constructors never close their transport on failure.
func closeTransport(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

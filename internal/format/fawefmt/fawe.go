// Package fawefmt implements the custom compressed clipboard format.
//
// A stream starts with the magic "FAWE", a compression byte and an index
// mode byte. Compression 0 stores the payload as is; any other value is a
// flate level and the payload is split into checksummed frames. The index
// mode selects how block positions are encoded:
//
//	0  dense raster, u32 dimensions
//	1  sparse records, dimensions up to 256
//	2  sparse records, dimensions up to 65535
//	3  dense raster followed by a block change log
//
// Compression 0 with index mode 0 allows O(1) block reads, see
// OpenRandomAccess.
package fawefmt

import (
	"errors"
	"io"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/volume"
)

// Magic prefixes every stream.
const Magic = "FAWE"

// DefaultLevel is the compression level used when none is given.
const DefaultLevel = 8

// Index modes.
const (
	IndexRaster    = 0
	IndexSmall     = 1
	IndexMedium    = 2
	IndexChangeLog = 3
)

const (
	defaultWorkers = 4
	entrySize      = 3
	maxSmallDim    = 256
	maxMediumDim   = 65535

	// rasterHeaderLen is the offset of the first raster entry in an
	// uncompressed index-0 stream.
	rasterHeaderLen = len(Magic) + 2 + 12 + 12
)

// MaxCells bounds the volume a reader will allocate.
const MaxCells = volume.MaxCells

var (
	// ErrSignature is returned when a stream does not start with Magic.
	ErrSignature = errors.New("fawefmt: missing FAWE signature")

	// ErrIndexMode is returned for an unknown index mode, or when a volume
	// does not fit the requested mode.
	ErrIndexMode = errors.New("fawefmt: invalid index mode")

	// ErrChecksum is returned when a compressed frame fails verification.
	ErrChecksum = errors.New("fawefmt: frame checksum mismatch")

	// ErrNoRandomAccess is returned by OpenRandomAccess for streams that
	// are compressed or not in raster index mode.
	ErrNoRandomAccess = errors.New("fawefmt: stream does not support random access")

	// ErrTooLarge is returned when a header declares more than MaxCells.
	ErrTooLarge = errors.New("fawefmt: volume too large")
)

// Compile-time check that Format implements format.Format.
var _ format.Format = (*Format)(nil)

// Format is the custom compressed format.
type Format struct {
	level   int
	index   int
	workers int
}

// Option configures a Format.
type Option func(*Format)

// WithLevel sets the compression level; 0 disables compression.
func WithLevel(level int) Option {
	return func(f *Format) { f.level = level }
}

// WithIndexMode sets the index mode used by writers.
func WithIndexMode(mode int) Option {
	return func(f *Format) { f.index = mode }
}

// WithWorkers sets the number of frames compressed in parallel.
func WithWorkers(n int) Option {
	return func(f *Format) { f.workers = n }
}

// New returns the format with the given writer defaults.
func New(opts ...Option) *Format {
	f := &Format{
		level:   DefaultLevel,
		index:   IndexRaster,
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns "FAWE".
func (f *Format) Name() string { return "FAWE" }

// Aliases returns the format aliases.
func (f *Format) Aliases() []string { return []string{"fawe", "bd"} }

// Extension returns "fawe".
func (f *Format) Extension() string { return "fawe" }

// Capabilities reports read, write and random access support.
func (f *Format) Capabilities() format.Capability {
	return format.CapRead | format.CapWrite | format.CapRandomAccess
}

// Detect checks the file suffix.
func (f *Format) Detect(path string) bool {
	return format.HasSuffix(path, "fawe", "bd")
}

// NewReader implements format.Format.
func (f *Format) NewReader(r io.Reader) (format.Reader, error) {
	return NewReader(r)
}

// NewWriter implements format.Format using the format's level.
func (f *Format) NewWriter(w io.Writer) (format.Writer, error) {
	return f.NewWriterLevel(w, f.level)
}

// NewWriterLevel returns a writer with an explicit compression level.
func (f *Format) NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriter(w, level, f.index, f.workers)
}

// Package schematicfmt implements the legacy MCEdit schematic format: a
// gzip-compressed tag tree rooted at a compound named "Schematic".
package schematicfmt

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/nbtio"
	"github.com/blockforge/clipio/internal/volume"
)

// RootName is the literal name of the root compound.
const RootName = "Schematic"

// ErrSignature is returned when a stream is not a legacy schematic.
var ErrSignature = errors.New("schematicfmt: root tag is not a Schematic compound")

// Compile-time check that Format implements format.Format.
var _ format.Format = (*Format)(nil)

// Format is the legacy schematic format.
type Format struct{}

// New returns the legacy schematic format.
func New() *Format {
	return &Format{}
}

// Name returns "SCHEMATIC".
func (f *Format) Name() string { return "SCHEMATIC" }

// Aliases returns the format aliases.
func (f *Format) Aliases() []string { return []string{"mcedit", "mce", "schematic"} }

// Extension returns "schematic".
func (f *Format) Extension() string { return "schematic" }

// Capabilities reports read, write and world-context support.
func (f *Format) Capabilities() format.Capability {
	return format.CapRead | format.CapWrite | format.CapWorldContext
}

// Detect opens path and checks the root tag signature.
func (f *Format) Detect(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	return nbtio.HasRootName(file, RootName)
}

// NewReader validates the stream signature and returns a reader positioned
// at the start of the document. Non-seekable input is recorded during the
// sniff and replayed.
func (f *Format) NewReader(r io.Reader) (format.Reader, error) {
	rw := nbtio.NewRewinder(r)
	if err := sniff(rw); err != nil {
		return nil, err
	}
	rw.Rewind()

	nr, err := nbtio.NewReader(rw)
	if err != nil {
		return nil, err
	}
	return &reader{nr: nr}, nil
}

func sniff(r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()
	name, ok, err := nbtio.RootName(gz)
	if err != nil {
		return fmt.Errorf("reading root tag: %w", err)
	}
	if !ok || name != RootName {
		return ErrSignature
	}
	return nil
}

// NewWriter returns a writer using the default gzip level.
func (f *Format) NewWriter(w io.Writer) (format.Writer, error) {
	nw, err := nbtio.NewWriter(w, nbtio.DefaultLevel)
	if err != nil {
		return nil, err
	}
	return &writer{nw: nw}, nil
}

// document is the on-disk tag layout.
type document struct {
	Width     int16  `nbt:"Width"`
	Height    int16  `nbt:"Height"`
	Length    int16  `nbt:"Length"`
	Materials string `nbt:"Materials"`
	Blocks    []byte `nbt:"Blocks"`
	AddBlocks []byte `nbt:"AddBlocks"`
	Data      []byte `nbt:"Data"`
	OriginX   int32  `nbt:"WEOriginX"`
	OriginY   int32  `nbt:"WEOriginY"`
	OriginZ   int32  `nbt:"WEOriginZ"`
	OffsetX   int32  `nbt:"WEOffsetX"`
	OffsetY   int32  `nbt:"WEOffsetY"`
	OffsetZ   int32  `nbt:"WEOffsetZ"`
}

// legacyIndex is the file's cell order: y outermost, then z, then x.
func legacyIndex(x, y, z, width, length int) int {
	return (y*length+z)*width + x
}

// baseDocument is document without AddBlocks, written when every id fits
// in a byte.
type baseDocument struct {
	Width     int16  `nbt:"Width"`
	Height    int16  `nbt:"Height"`
	Length    int16  `nbt:"Length"`
	Materials string `nbt:"Materials"`
	Blocks    []byte `nbt:"Blocks"`
	Data      []byte `nbt:"Data"`
	OriginX   int32  `nbt:"WEOriginX"`
	OriginY   int32  `nbt:"WEOriginY"`
	OriginZ   int32  `nbt:"WEOriginZ"`
	OffsetX   int32  `nbt:"WEOffsetX"`
	OffsetY   int32  `nbt:"WEOffsetY"`
	OffsetZ   int32  `nbt:"WEOffsetZ"`
}

type reader struct {
	nr *nbtio.Reader
}

func (r *reader) Read(wc *format.WorldContext) (*volume.Volume, error) {
	var doc document
	name, err := r.nr.Decoder.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decoding schematic: %w", err)
	}
	if name != RootName {
		return nil, ErrSignature
	}

	w, h, l := int(doc.Width), int(doc.Height), int(doc.Length)
	if w <= 0 || h <= 0 || l <= 0 {
		return nil, fmt.Errorf("schematicfmt: invalid dimensions %dx%dx%d", w, h, l)
	}
	// Int16 dimensions cannot overflow int64. The arrays were already
	// decoded, so their lengths bound the volume before it is allocated.
	cells := int64(w) * int64(h) * int64(l)
	if int64(len(doc.Blocks)) != cells || int64(len(doc.Data)) != cells {
		return nil, fmt.Errorf("schematicfmt: expected %d cells, got %d blocks and %d data",
			cells, len(doc.Blocks), len(doc.Data))
	}
	if doc.AddBlocks != nil && int64(len(doc.AddBlocks)) < (cells+1)/2 {
		return nil, fmt.Errorf("schematicfmt: AddBlocks too short: %d", len(doc.AddBlocks))
	}

	v, err := volume.New(volume.Vec3{X: w, Y: h, Z: l}, volume.Vec3{
		X: int(doc.OriginX), Y: int(doc.OriginY), Z: int(doc.OriginZ),
	})
	if err != nil {
		return nil, err
	}

	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				i := legacyIndex(x, y, z, w, l)
				id := uint16(doc.Blocks[i])
				if doc.AddBlocks != nil {
					id |= uint16(addNibble(doc.AddBlocks, i)) << 8
				}
				v.SetIndex(v.Index(volume.Vec3{X: x, Y: y, Z: z}), volume.Block{
					ID:   id,
					Data: doc.Data[i] & 0x0F,
				})
			}
		}
	}

	if wc != nil {
		v.Meta.World = wc.World
		v.Meta.Author = wc.Actor.String()
	}
	return v, nil
}

func (r *reader) Close() error {
	return r.nr.Close()
}

func addNibble(add []byte, i int) byte {
	if i&1 == 0 {
		return add[i>>1] & 0x0F
	}
	return (add[i>>1] & 0xF0) >> 4
}

type writer struct {
	nw *nbtio.Writer
}

func (w *writer) Write(v *volume.Volume) error {
	size := v.Size()
	if size.X > math.MaxInt16 || size.Y > math.MaxInt16 || size.Z > math.MaxInt16 {
		return fmt.Errorf("schematicfmt: dimensions %s exceed %d", size, math.MaxInt16)
	}

	cells := v.Cells()
	doc := document{
		Width:     int16(size.X),
		Height:    int16(size.Y),
		Length:    int16(size.Z),
		Materials: "Alpha",
		Blocks:    make([]byte, cells),
		Data:      make([]byte, cells),
		OriginX:   int32(v.Origin().X),
		OriginY:   int32(v.Origin().Y),
		OriginZ:   int32(v.Origin().Z),
	}

	var add []byte
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				b := v.At(volume.Vec3{X: x, Y: y, Z: z})
				if !b.Legacy() {
					return fmt.Errorf("%w: schematic cannot store block %d:%d at (%d, %d, %d)",
						format.ErrUnsupported, b.ID, b.Data, x, y, z)
				}
				i := legacyIndex(x, y, z, size.X, size.Z)
				doc.Blocks[i] = byte(b.ID)
				doc.Data[i] = b.Data
				if hi := byte(b.ID >> 8); hi != 0 {
					if add == nil {
						add = make([]byte, (cells+1)/2)
					}
					if i&1 == 0 {
						add[i>>1] = (add[i>>1] & 0xF0) | hi
					} else {
						add[i>>1] = (add[i>>1] & 0x0F) | hi<<4
					}
				}
			}
		}
	}
	var out any
	if add != nil {
		doc.AddBlocks = add
		out = doc
	} else {
		out = baseDocument{
			Width: doc.Width, Height: doc.Height, Length: doc.Length,
			Materials: doc.Materials, Blocks: doc.Blocks, Data: doc.Data,
			OriginX: doc.OriginX, OriginY: doc.OriginY, OriginZ: doc.OriginZ,
		}
	}

	if err := w.nw.Encoder.Encode(out, RootName); err != nil {
		return fmt.Errorf("encoding schematic: %w", err)
	}
	return nil
}

func (w *writer) Close() error {
	return w.nw.Close()
}

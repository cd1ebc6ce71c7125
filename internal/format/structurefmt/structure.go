// Package structurefmt implements the structure-block file format: a
// gzip-compressed tag tree with a block palette and positioned blocks.
package structurefmt

import (
	"fmt"
	"io"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/nbtio"
	"github.com/blockforge/clipio/internal/volume"
)

// DataVersion is written into new files.
const DataVersion = 1343

// Compile-time check that Format implements format.Format.
var _ format.Format = (*Format)(nil)

// Format is the structure-block format. It has no header signature and is
// detected by file suffix only.
type Format struct{}

// New returns the structure format.
func New() *Format {
	return &Format{}
}

// Name returns "STRUCTURE".
func (f *Format) Name() string { return "STRUCTURE" }

// Aliases returns the format aliases.
func (f *Format) Aliases() []string { return []string{"structure", "nbt"} }

// Extension returns "nbt".
func (f *Format) Extension() string { return "nbt" }

// Capabilities reports read, write and world-context support.
func (f *Format) Capabilities() format.Capability {
	return format.CapRead | format.CapWrite | format.CapWorldContext
}

// Detect checks the file suffix.
func (f *Format) Detect(path string) bool {
	return format.HasSuffix(path, "nbt", "structure")
}

// NewReader opens the gzip stream. The document itself is validated on Read.
func (f *Format) NewReader(r io.Reader) (format.Reader, error) {
	nr, err := nbtio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &reader{nr: nr}, nil
}

// NewWriter returns a writer using the default gzip level.
func (f *Format) NewWriter(w io.Writer) (format.Writer, error) {
	nw, err := nbtio.NewWriter(w, nbtio.DefaultLevel)
	if err != nil {
		return nil, err
	}
	return &writer{nw: nw}, nil
}

type document struct {
	DataVersion int32          `nbt:"DataVersion"`
	Author      string         `nbt:"author"`
	Size        []int32        `nbt:"size" nbt_type:"list"`
	Palette     []paletteEntry `nbt:"palette"`
	Blocks      []blockEntry   `nbt:"blocks"`
}

type paletteEntry struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties"`
}

type blockEntry struct {
	Pos   []int32 `nbt:"pos" nbt_type:"list"`
	State int32   `nbt:"state"`
}

type reader struct {
	nr *nbtio.Reader
}

func (r *reader) Read(wc *format.WorldContext) (*volume.Volume, error) {
	var doc document
	if _, err := r.nr.Decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding structure: %w", err)
	}
	if len(doc.Size) != 3 {
		return nil, fmt.Errorf("structurefmt: size has %d components, want 3", len(doc.Size))
	}

	v, err := volume.New(volume.Vec3{X: int(doc.Size[0]), Y: int(doc.Size[1]), Z: int(doc.Size[2])}, volume.Vec3{})
	if err != nil {
		return nil, err
	}

	palette := make([]volume.Block, len(doc.Palette))
	for i, entry := range doc.Palette {
		palette[i] = BlockFromState(entry.Name, entry.Properties)
	}

	for _, b := range doc.Blocks {
		if len(b.Pos) != 3 {
			return nil, fmt.Errorf("structurefmt: block pos has %d components", len(b.Pos))
		}
		if b.State < 0 || int(b.State) >= len(palette) {
			return nil, fmt.Errorf("structurefmt: palette index %d out of range", b.State)
		}
		pos := volume.Vec3{X: int(b.Pos[0]), Y: int(b.Pos[1]), Z: int(b.Pos[2])}
		if err := v.Set(pos, palette[b.State]); err != nil {
			return nil, err
		}
	}

	v.Meta.Author = doc.Author
	if wc != nil {
		v.Meta.World = wc.World
		if v.Meta.Author == "" {
			v.Meta.Author = wc.Actor.String()
		}
	}
	return v, nil
}

func (r *reader) Close() error {
	return r.nr.Close()
}

type writer struct {
	nw *nbtio.Writer
}

func (w *writer) Write(v *volume.Volume) error {
	size := v.Size()
	doc := document{
		DataVersion: DataVersion,
		Author:      v.Meta.Author,
		Size:        []int32{int32(size.X), int32(size.Y), int32(size.Z)},
	}

	states := make(map[volume.Block]int32)
	for i := 0; i < v.Cells(); i++ {
		b := v.AtIndex(i)
		if b.IsAir() {
			continue
		}
		state, ok := states[b]
		if !ok {
			if !b.Legacy() {
				return fmt.Errorf("%w: structure cannot store block %d:%d at %s",
					format.ErrUnsupported, b.ID, b.Data, v.Position(i))
			}
			state = int32(len(doc.Palette))
			states[b] = state
			name, props := StateFromBlock(b)
			doc.Palette = append(doc.Palette, paletteEntry{Name: name, Properties: props})
		}
		p := v.Position(i)
		doc.Blocks = append(doc.Blocks, blockEntry{
			Pos:   []int32{int32(p.X), int32(p.Y), int32(p.Z)},
			State: state,
		})
	}
	if len(doc.Palette) == 0 {
		// Lists must not be empty-typed; an all-air structure still gets
		// one palette entry.
		name, props := StateFromBlock(volume.Air)
		doc.Palette = append(doc.Palette, paletteEntry{Name: name, Properties: props})
		doc.Blocks = append(doc.Blocks, blockEntry{Pos: []int32{0, 0, 0}, State: 0})
	}

	if err := w.nw.Encoder.Encode(doc, ""); err != nil {
		return fmt.Errorf("encoding structure: %w", err)
	}
	return nil
}

func (w *writer) Close() error {
	return w.nw.Close()
}

// Package volume defines the in-memory clipboard: a bounded 3D grid of
// block entries with explicit dimensions and an origin offset.
package volume

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a position lies outside the volume.
	ErrOutOfBounds = errors.New("volume: position out of bounds")

	// ErrTooLarge is returned by New for volumes of more than MaxCells.
	ErrTooLarge = errors.New("volume: too many cells")
)

// MaxCells bounds the number of cells New will allocate.
const MaxCells = 1 << 28

// Vec3 is an integer block position or size.
type Vec3 struct {
	X, Y, Z int
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Legacy block entry widths.
const (
	MaxID   = 1<<12 - 1
	MaxData = 1<<4 - 1
)

// Block is a legacy block entry: a 12-bit id and a 4-bit data value.
// The fields are wider than that; formats limited to the legacy widths
// reject blocks for which Legacy is false.
type Block struct {
	ID   uint16
	Data uint8
}

// Legacy reports whether b fits a 12-bit id and a 4-bit data value.
func (b Block) Legacy() bool {
	return b.ID <= MaxID && b.Data <= MaxData
}

// Air is the zero block.
var Air = Block{}

// IsAir reports whether b is air.
func (b Block) IsAir() bool {
	return b.ID == 0
}

// Change records a block replacement at a position, as stored in the
// incremental change log of the custom format.
type Change struct {
	Pos   Vec3
	Block Block
}

// Metadata carries identity information stamped on a volume by readers
// that run with a world context.
type Metadata struct {
	Name   string
	World  string
	Author string
}

// Volume is a dense grid of blocks stored in raster order: x varies
// fastest, then y, then z.
//
// Decoders build a Volume with Set and hand it to callers; after that the
// volume is treated as immutable.
type Volume struct {
	size   Vec3
	origin Vec3
	blocks []Block

	Meta Metadata
}

// New creates an all-air volume with the given dimensions and origin.
// Volumes of more than MaxCells cells are rejected with ErrTooLarge.
func New(size, origin Vec3) (*Volume, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("volume: invalid dimensions %s", size)
	}
	cells, ok := CellCount(size)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, size)
	}
	return &Volume{
		size:   size,
		origin: origin,
		blocks: make([]Block, cells),
	}, nil
}

// CellCount returns the number of cells of a volume with positive
// dimensions size. ok is false when the count exceeds MaxCells.
func CellCount(size Vec3) (cells int, ok bool) {
	n := 1
	for _, d := range [...]int{size.X, size.Y, size.Z} {
		// Each factor is checked before multiplying, so n never overflows.
		if d > MaxCells || n > MaxCells/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// Size returns the width (x), height (y) and length (z).
func (v *Volume) Size() Vec3 { return v.size }

// Width returns the x extent.
func (v *Volume) Width() int { return v.size.X }

// Height returns the y extent.
func (v *Volume) Height() int { return v.size.Y }

// Length returns the z extent.
func (v *Volume) Length() int { return v.size.Z }

// Origin returns the origin offset.
func (v *Volume) Origin() Vec3 { return v.origin }

// Cells returns the number of cells.
func (v *Volume) Cells() int { return len(v.blocks) }

// Contains reports whether p lies inside the volume.
func (v *Volume) Contains(p Vec3) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 &&
		p.X < v.size.X && p.Y < v.size.Y && p.Z < v.size.Z
}

// Index returns the raster index of p. The caller must ensure p is in bounds.
func (v *Volume) Index(p Vec3) int {
	return p.X + v.size.X*(p.Y+v.size.Y*p.Z)
}

// Position is the inverse of Index.
func (v *Volume) Position(index int) Vec3 {
	x := index % v.size.X
	rest := index / v.size.X
	return Vec3{X: x, Y: rest % v.size.Y, Z: rest / v.size.Y}
}

// At returns the block at p, or air when p is out of bounds.
func (v *Volume) At(p Vec3) Block {
	if !v.Contains(p) {
		return Air
	}
	return v.blocks[v.Index(p)]
}

// AtIndex returns the block at a raster index.
func (v *Volume) AtIndex(i int) Block {
	return v.blocks[i]
}

// Set stores b at p.
func (v *Volume) Set(p Vec3, b Block) error {
	if !v.Contains(p) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	v.blocks[v.Index(p)] = b
	return nil
}

// SetIndex stores b at a raster index.
func (v *Volume) SetIndex(i int, b Block) {
	v.blocks[i] = b
}

// Apply replays changes in order.
func (v *Volume) Apply(changes []Change) error {
	for _, c := range changes {
		if err := v.Set(c.Pos, c.Block); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the low byte of the block id at a raster index. It makes a
// Volume usable as a bytestream.IDSource.
func (v *Volume) ID(i int) byte {
	return byte(v.blocks[i].ID)
}

// Equal reports structural equality: same dimensions, origin and blocks.
// Metadata is ignored.
func (v *Volume) Equal(o *Volume) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.size != o.size || v.origin != o.origin {
		return false
	}
	for i := range v.blocks {
		if v.blocks[i] != o.blocks[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	c := *v
	c.blocks = make([]Block, len(v.blocks))
	copy(c.blocks, v.blocks)
	return &c
}

// Package pngfmt renders a clipboard as an isometric PNG image. It is
// write-only.
package pngfmt

import (
	"bufio"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/nbtio"
	"github.com/blockforge/clipio/internal/volume"
)

const (
	maxTile   = 8
	maxCanvas = 4096
)

// Compile-time check that Format implements format.Format.
var _ format.Format = (*Format)(nil)

// Format is the isometric image writer.
type Format struct{}

// New returns the image format.
func New() *Format {
	return &Format{}
}

// Name returns "PNG".
func (f *Format) Name() string { return "PNG" }

// Aliases returns the format aliases.
func (f *Format) Aliases() []string { return []string{"png", "image"} }

// Extension returns "png".
func (f *Format) Extension() string { return "png" }

// Capabilities reports write support only.
func (f *Format) Capabilities() format.Capability { return format.CapWrite }

// Detect checks the file suffix.
func (f *Format) Detect(path string) bool {
	return format.HasSuffix(path, "png", "image")
}

// NewReader always fails with format.ErrUnsupported.
func (f *Format) NewReader(io.Reader) (format.Reader, error) {
	return nil, format.ErrUnsupported
}

// NewWriter returns a writer that encodes one image to w.
func (f *Format) NewWriter(w io.Writer) (format.Writer, error) {
	out := &writer{buf: bufio.NewWriter(w)}
	out.chain.PushTransport(w)
	return out, nil
}

type writer struct {
	buf   *bufio.Writer
	chain nbtio.Chain
}

func (w *writer) Write(v *volume.Volume) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w.buf, Render(v)); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *writer) Close() error {
	return w.chain.Close()
}

// Render draws v in isometric projection: x runs down-right, z runs
// down-left and y runs up. Blocks closer to the viewer are drawn last.
func Render(v *volume.Volume) *image.NRGBA {
	size := v.Size()
	tile := tileSize(size)
	half := max(tile/2, 1)

	width := (size.X+size.Z)*tile + tile
	height := (size.X+size.Z)*half + size.Y*tile + tile
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	originX := size.Z * tile
	originY := size.Y * tile
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				b := v.At(volume.Vec3{X: x, Y: y, Z: z})
				if b.IsAir() {
					continue
				}
				sx := originX + (x-z)*tile
				sy := originY + (x+z)*half - y*tile
				drawBlock(img, sx, sy, tile, Color(b))
			}
		}
	}
	return img
}

func tileSize(size volume.Vec3) int {
	tile := maxTile
	for tile > 1 && ((size.X+size.Z+1)*tile > maxCanvas || (size.Y+size.X+size.Z+1)*tile > maxCanvas) {
		tile /= 2
	}
	return tile
}

// drawBlock fills a tile with the top face lighter than the sides.
func drawBlock(img *image.NRGBA, sx, sy, tile int, c color.NRGBA) {
	top := shade(c, 1.15)
	for dy := 0; dy < tile; dy++ {
		fill := c
		if dy < max(tile/4, 1) {
			fill = top
		}
		for dx := 0; dx < tile; dx++ {
			img.SetNRGBA(sx+dx, sy+dy, fill)
		}
	}
}

func shade(c color.NRGBA, f float64) color.NRGBA {
	scale := func(v uint8) uint8 {
		return uint8(min(float64(v)*f, 255))
	}
	return color.NRGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// Color returns the stable palette colour of a block.
func Color(b volume.Block) color.NRGBA {
	var key [3]byte
	binary.BigEndian.PutUint16(key[:], b.ID)
	key[2] = b.Data
	h := xxhash.Sum64(key[:])
	return color.NRGBA{R: byte(h), G: byte(h >> 8), B: byte(h >> 16), A: 0xff}
}

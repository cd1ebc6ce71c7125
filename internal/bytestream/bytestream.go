// Package bytestream walks the block-id payload of a clipboard and pushes
// one id byte per cell to a visitor, without copying the volume.
package bytestream

import (
	"fmt"
	"io"
)

// bufferSize is the fixed per-call buffer; it never scales with the volume.
const bufferSize = 4096

// IDSource exposes the low id byte of each cell by raster index.
type IDSource interface {
	Cells() int
	ID(index int) byte
}

// Visitor receives a cell's raster index and its id byte.
type Visitor func(index int, id byte)

// StreamIDs visits every cell of src exactly once, in raster order
// (x fastest, then y, then z).
func StreamIDs(src IDSource, fn Visitor) {
	var buf [bufferSize]byte
	cells := src.Cells()
	for base := 0; base < cells; base += bufferSize {
		n := min(bufferSize, cells-base)
		for i := 0; i < n; i++ {
			buf[i] = src.ID(base + i)
		}
		for i := 0; i < n; i++ {
			fn(base+i, buf[i])
		}
	}
}

// EntrySize is the size of one raster entry in the custom format:
// a big-endian uint16 id followed by a data byte.
const EntrySize = 3

// StreamRaster visits the ids of an uncompressed custom-format raster read
// from r. It reads exactly cells*EntrySize bytes.
func StreamRaster(r io.Reader, cells int, fn Visitor) error {
	var buf [bufferSize * EntrySize]byte
	for base := 0; base < cells; base += bufferSize {
		n := min(bufferSize, cells-base)
		chunk := buf[:n*EntrySize]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return fmt.Errorf("reading raster at cell %d: %w", base, err)
		}
		for i := 0; i < n; i++ {
			// Low byte of the big-endian id.
			fn(base+i, chunk[i*EntrySize+1])
		}
	}
	return nil
}

// Histogram counts id-byte frequency over all cells of src.
func Histogram(src IDSource) [256]int64 {
	var counts [256]int64
	StreamIDs(src, func(_ int, id byte) {
		counts[id]++
	})
	return counts
}

package fawefmt

import (
	"bytes"
	"fmt"
	"io"

	"github.com/blockforge/clipio/internal/volume"
)

// RandomAccess reads single blocks from an uncompressed raster stream
// without scanning it.
type RandomAccess struct {
	ra     io.ReaderAt
	header Header
}

// OpenRandomAccess reads the header of the stream in ra. It returns
// ErrNoRandomAccess unless the stream is uncompressed and in raster mode.
func OpenRandomAccess(ra io.ReaderAt) (*RandomAccess, error) {
	head := make([]byte, rasterHeaderLen)
	if _, err := ra.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !bytes.HasPrefix(head, []byte(Magic)) {
		return nil, ErrSignature
	}
	if head[len(Magic)] != 0 || head[len(Magic)+1] != IndexRaster {
		return nil, ErrNoRandomAccess
	}

	h, _, err := readHeader(bytes.NewReader(head))
	if err != nil {
		return nil, err
	}
	return &RandomAccess{ra: ra, header: h}, nil
}

// Header returns the stream header.
func (r *RandomAccess) Header() Header {
	return r.header
}

// BlockAt reads the block at p with a single ReadAt.
func (r *RandomAccess) BlockAt(p volume.Vec3) (volume.Block, error) {
	s := r.header.Size
	if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= s.X || p.Y >= s.Y || p.Z >= s.Z {
		return volume.Air, volume.ErrOutOfBounds
	}
	index := int64(p.X) + int64(s.X)*(int64(p.Y)+int64(s.Y)*int64(p.Z))

	var entry [entrySize]byte
	if _, err := r.ra.ReadAt(entry[:], int64(rasterHeaderLen)+entrySize*index); err != nil {
		return volume.Air, fmt.Errorf("reading block at %s: %w", p, err)
	}
	return decodeBlock(entry[:]), nil
}

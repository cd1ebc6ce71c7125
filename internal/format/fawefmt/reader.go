package fawefmt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blockforge/clipio/internal/bytestream"
	"github.com/blockforge/clipio/internal/codec/autocodec"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/nbtio"
	"github.com/blockforge/clipio/internal/volume"
)

// Compile-time check that Reader implements format.Reader.
var _ format.Reader = (*Reader)(nil)

// Header is the decoded stream header.
type Header struct {
	Compression int
	Index       int
	Size        volume.Vec3
	Origin      volume.Vec3
}

// Reader decodes one volume. The signature is checked on the first read.
type Reader struct {
	src     io.Reader
	chain   nbtio.Chain
	changes []volume.Change
}

// NewReader returns a reader over r. One outer gzip, zstd, lz4 or s2
// layer is removed automatically.
func NewReader(r io.Reader) (*Reader, error) {
	out := &Reader{}
	out.chain.PushTransport(r)
	rc, err := autocodec.Unwrap(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("opening outer compression: %w", err)
	}
	out.chain.Push(rc)
	out.src = rc
	return out, nil
}

// Read decodes the volume. In change log mode the changes are applied to
// the base raster and remain available from Changes.
func (r *Reader) Read(*format.WorldContext) (*volume.Volume, error) {
	h, payload, err := readHeader(r.src)
	if err != nil {
		return nil, err
	}

	v, changes, err := decodePayload(h, payload)
	if err != nil {
		return nil, fmt.Errorf("decoding fawe payload: %w", err)
	}
	r.changes = changes
	return v, nil
}

// Changes returns the change log read by Read.
func (r *Reader) Changes() []volume.Change {
	return r.changes
}

// Close releases the outer decompressor and the transport.
func (r *Reader) Close() error {
	return r.chain.Close()
}

// readHeader parses everything up to the first payload entry and returns
// a reader positioned there.
func readHeader(src io.Reader) (Header, io.Reader, error) {
	var h Header
	var head [len(Magic) + 2]byte
	if _, err := io.ReadFull(src, head[:]); err != nil {
		return h, nil, fmt.Errorf("reading header: %w", err)
	}
	if string(head[:len(Magic)]) != Magic {
		return h, nil, ErrSignature
	}
	h.Compression = int(head[len(Magic)])
	h.Index = int(head[len(Magic)+1])
	if h.Index > IndexChangeLog {
		return h, nil, fmt.Errorf("%w: %d", ErrIndexMode, h.Index)
	}

	payload := src
	if h.Compression > 0 {
		payload = newFrameReader(src)
	}

	var dims []byte
	switch h.Index {
	case IndexSmall:
		dims = make([]byte, 3)
	case IndexMedium:
		dims = make([]byte, 6)
	default:
		dims = make([]byte, 12)
	}
	if _, err := io.ReadFull(payload, dims); err != nil {
		return h, nil, fmt.Errorf("reading dimensions: %w", err)
	}
	switch h.Index {
	case IndexSmall:
		h.Size = volume.Vec3{X: int(dims[0]) + 1, Y: int(dims[1]) + 1, Z: int(dims[2]) + 1}
	case IndexMedium:
		h.Size = volume.Vec3{
			X: int(binary.BigEndian.Uint16(dims[0:])),
			Y: int(binary.BigEndian.Uint16(dims[2:])),
			Z: int(binary.BigEndian.Uint16(dims[4:])),
		}
	default:
		h.Size = volume.Vec3{
			X: int(binary.BigEndian.Uint32(dims[0:])),
			Y: int(binary.BigEndian.Uint32(dims[4:])),
			Z: int(binary.BigEndian.Uint32(dims[8:])),
		}
	}
	if h.Size.X <= 0 || h.Size.Y <= 0 || h.Size.Z <= 0 {
		return h, nil, fmt.Errorf("fawefmt: invalid dimensions %s", h.Size)
	}
	if int64(h.Size.X)*int64(h.Size.Y)*int64(h.Size.Z) > MaxCells {
		return h, nil, fmt.Errorf("%w: %s", ErrTooLarge, h.Size)
	}

	var origin [12]byte
	if _, err := io.ReadFull(payload, origin[:]); err != nil {
		return h, nil, fmt.Errorf("reading origin: %w", err)
	}
	h.Origin = volume.Vec3{
		X: int(int32(binary.BigEndian.Uint32(origin[0:]))),
		Y: int(int32(binary.BigEndian.Uint32(origin[4:]))),
		Z: int(int32(binary.BigEndian.Uint32(origin[8:]))),
	}
	return h, payload, nil
}

func decodeBlock(b []byte) volume.Block {
	return volume.Block{ID: binary.BigEndian.Uint16(b), Data: b[2]}
}

func readRaster(r io.Reader, v *volume.Volume) error {
	const chunk = 4096
	buf := make([]byte, chunk*entrySize)
	cells := v.Cells()
	for base := 0; base < cells; base += chunk {
		n := min(chunk, cells-base)
		part := buf[:n*entrySize]
		if _, err := io.ReadFull(r, part); err != nil {
			return fmt.Errorf("reading raster at cell %d: %w", base, err)
		}
		for i := 0; i < n; i++ {
			v.SetIndex(base+i, decodeBlock(part[i*entrySize:]))
		}
	}
	return nil
}

func readRecords(r io.Reader, v *volume.Volume, width int) error {
	var cnt [4]byte
	if _, err := io.ReadFull(r, cnt[:]); err != nil {
		return fmt.Errorf("reading record count: %w", err)
	}
	count := binary.BigEndian.Uint32(cnt[:])
	if int64(count) > int64(v.Cells()) {
		return fmt.Errorf("fawefmt: %d records for %d cells", count, v.Cells())
	}

	rec := make([]byte, 3*width+entrySize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec); err != nil {
			return fmt.Errorf("reading record %d: %w", i, err)
		}
		var p volume.Vec3
		if width == 1 {
			p = volume.Vec3{X: int(rec[0]), Y: int(rec[1]), Z: int(rec[2])}
		} else {
			p = volume.Vec3{
				X: int(binary.BigEndian.Uint16(rec[0:])),
				Y: int(binary.BigEndian.Uint16(rec[2:])),
				Z: int(binary.BigEndian.Uint16(rec[4:])),
			}
		}
		if err := v.Set(p, decodeBlock(rec[3*width:])); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func readChanges(r io.Reader, v *volume.Volume) ([]volume.Change, error) {
	var cnt [4]byte
	if _, err := io.ReadFull(r, cnt[:]); err != nil {
		return nil, fmt.Errorf("reading change count: %w", err)
	}
	count := binary.BigEndian.Uint32(cnt[:])

	var changes []volume.Change
	var rec [4 + entrySize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("reading change %d: %w", i, err)
		}
		cell := binary.BigEndian.Uint32(rec[:])
		if int64(cell) >= int64(v.Cells()) {
			return nil, fmt.Errorf("change %d: %w", i, volume.ErrOutOfBounds)
		}
		changes = append(changes, volume.Change{
			Pos:   v.Position(int(cell)),
			Block: decodeBlock(rec[4:]),
		})
	}
	return changes, nil
}

func decodePayload(h Header, payload io.Reader) (*volume.Volume, []volume.Change, error) {
	v, err := volume.New(h.Size, h.Origin)
	if err != nil {
		return nil, nil, err
	}

	var changes []volume.Change
	switch h.Index {
	case IndexRaster:
		err = readRaster(payload, v)
	case IndexSmall:
		err = readRecords(payload, v, 1)
	case IndexMedium:
		err = readRecords(payload, v, 2)
	case IndexChangeLog:
		if err = readRaster(payload, v); err != nil {
			break
		}
		if changes, err = readChanges(payload, v); err != nil {
			break
		}
		err = v.Apply(changes)
	}
	if err != nil {
		return nil, nil, err
	}
	return v, changes, nil
}

// StreamIDs visits the low id byte of every cell of the stream in r in
// raster order. Raster-mode streams are walked without building a volume.
// r is not closed.
func StreamIDs(r io.Reader, fn bytestream.Visitor) error {
	src, err := autocodec.Unwrap(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("opening outer compression: %w", err)
	}
	defer src.Close()

	h, payload, err := readHeader(src)
	if err != nil {
		return err
	}
	if h.Index == IndexRaster {
		return bytestream.StreamRaster(payload, h.Size.X*h.Size.Y*h.Size.Z, fn)
	}

	v, _, err := decodePayload(h, payload)
	if err != nil {
		return err
	}
	bytestream.StreamIDs(v, fn)
	return nil
}

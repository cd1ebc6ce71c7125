package fawefmt

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/blockforge/clipio/internal/codec/autocodec"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/nbtio"
	"github.com/blockforge/clipio/internal/volume"
)

// Compile-time check that Writer implements format.Writer.
var _ format.Writer = (*Writer)(nil)

// Writer encodes one volume.
type Writer struct {
	out     *bufio.Writer
	chain   nbtio.Chain
	level   int
	index   int
	workers int
	changes []volume.Change
	written bool
}

// NewWriter returns a writer over w. level 0 disables compression; when w
// already compresses its input the stream is written uncompressed.
func NewWriter(w io.Writer, level, index, workers int) (*Writer, error) {
	if level < 0 || level > 9 {
		return nil, fmt.Errorf("fawefmt: invalid compression level %d", level)
	}
	if index < IndexRaster || index > IndexChangeLog {
		return nil, fmt.Errorf("%w: %d", ErrIndexMode, index)
	}
	if autocodec.IsCompressing(w) {
		level = 0
	}

	out := &Writer{
		level:   level,
		index:   index,
		workers: workers,
	}
	out.chain.PushTransport(w)
	out.out = bufio.NewWriter(w)
	out.chain.Push(flusher{out.out})
	return out, nil
}

// Level returns the compression level written to the header.
func (w *Writer) Level() int { return w.level }

// AppendChange queues a change record. Change records are only written in
// IndexChangeLog mode and must be added before Write.
func (w *Writer) AppendChange(c volume.Change) error {
	if w.index != IndexChangeLog {
		return fmt.Errorf("%w: change log needs index mode %d", ErrIndexMode, IndexChangeLog)
	}
	if w.written {
		return errors.New("fawefmt: change appended after write")
	}
	w.changes = append(w.changes, c)
	return nil
}

// Write encodes v. It may be called once.
func (w *Writer) Write(v *volume.Volume) error {
	if w.written {
		return errors.New("fawefmt: volume already written")
	}
	w.written = true

	if err := w.validate(v); err != nil {
		return err
	}

	head := append([]byte(Magic), byte(w.level), byte(w.index))
	if _, err := w.out.Write(head); err != nil {
		return err
	}

	var payload io.Writer = w.out
	if w.level > 0 {
		fw := newFrameWriter(w.out, w.level, w.workers)
		w.chain.Push(fw)
		payload = fw
	}

	switch w.index {
	case IndexRaster:
		return writeRaster(payload, v)
	case IndexSmall:
		return writeRecords(payload, v, 1)
	case IndexMedium:
		return writeRecords(payload, v, 2)
	default:
		if err := writeRaster(payload, v); err != nil {
			return err
		}
		return writeChanges(payload, v, w.changes)
	}
}

// Close flushes compression, then buffering, then closes the transport.
func (w *Writer) Close() error {
	return w.chain.Close()
}

func (w *Writer) validate(v *volume.Volume) error {
	size := v.Size()
	limit := 0
	switch w.index {
	case IndexSmall:
		limit = maxSmallDim
	case IndexMedium:
		limit = maxMediumDim
	}
	if limit > 0 && (size.X > limit || size.Y > limit || size.Z > limit) {
		return fmt.Errorf("%w: %s exceeds %d in mode %d", ErrIndexMode, size, limit, w.index)
	}
	for _, c := range w.changes {
		if !v.Contains(c.Pos) {
			return fmt.Errorf("change at %s: %w", c.Pos, volume.ErrOutOfBounds)
		}
	}
	return nil
}

func appendOrigin(b []byte, o volume.Vec3) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(int32(o.X)))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(o.Y)))
	return binary.BigEndian.AppendUint32(b, uint32(int32(o.Z)))
}

func appendBlock(b []byte, blk volume.Block) []byte {
	b = binary.BigEndian.AppendUint16(b, blk.ID)
	return append(b, blk.Data)
}

func writeRaster(w io.Writer, v *volume.Volume) error {
	size := v.Size()
	head := make([]byte, 0, 24)
	head = binary.BigEndian.AppendUint32(head, uint32(size.X))
	head = binary.BigEndian.AppendUint32(head, uint32(size.Y))
	head = binary.BigEndian.AppendUint32(head, uint32(size.Z))
	head = appendOrigin(head, v.Origin())
	if _, err := w.Write(head); err != nil {
		return err
	}

	const chunk = 4096
	buf := make([]byte, 0, chunk*entrySize)
	for i := 0; i < v.Cells(); i++ {
		buf = appendBlock(buf, v.AtIndex(i))
		if len(buf) == cap(buf) {
			if _, err := w.Write(buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		_, err := w.Write(buf)
		return err
	}
	return nil
}

// writeRecords writes the non-air cells with positions of width bytes.
func writeRecords(w io.Writer, v *volume.Volume, width int) error {
	size := v.Size()
	head := make([]byte, 0, 24)
	if width == 1 {
		head = append(head, byte(size.X-1), byte(size.Y-1), byte(size.Z-1))
	} else {
		head = binary.BigEndian.AppendUint16(head, uint16(size.X))
		head = binary.BigEndian.AppendUint16(head, uint16(size.Y))
		head = binary.BigEndian.AppendUint16(head, uint16(size.Z))
	}
	head = appendOrigin(head, v.Origin())

	var count uint32
	for i := 0; i < v.Cells(); i++ {
		if !v.AtIndex(i).IsAir() {
			count++
		}
	}
	head = binary.BigEndian.AppendUint32(head, count)
	if _, err := w.Write(head); err != nil {
		return err
	}

	rec := make([]byte, 0, 3*width+entrySize)
	for i := 0; i < v.Cells(); i++ {
		blk := v.AtIndex(i)
		if blk.IsAir() {
			continue
		}
		p := v.Position(i)
		rec = rec[:0]
		if width == 1 {
			rec = append(rec, byte(p.X), byte(p.Y), byte(p.Z))
		} else {
			rec = binary.BigEndian.AppendUint16(rec, uint16(p.X))
			rec = binary.BigEndian.AppendUint16(rec, uint16(p.Y))
			rec = binary.BigEndian.AppendUint16(rec, uint16(p.Z))
		}
		rec = appendBlock(rec, blk)
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeChanges(w io.Writer, v *volume.Volume, changes []volume.Change) error {
	buf := make([]byte, 0, 4+len(changes)*7)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(changes)))
	for _, c := range changes {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v.Index(c.Pos)))
		buf = appendBlock(buf, c.Block)
	}
	_, err := w.Write(buf)
	return err
}

type flusher struct {
	*bufio.Writer
}

func (f flusher) Close() error { return f.Flush() }

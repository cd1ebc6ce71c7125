package fawefmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
)

const (
	frameSize      = 64 << 10
	frameHeaderLen = 16
	maxCompLen     = frameSize + frameSize/2
)

// frameWriter splits the payload into fixed-size frames and compresses
// up to workers frames in parallel. Frames are written in order.
type frameWriter struct {
	w       io.Writer
	level   int
	workers int

	buf     []byte
	pending [][]byte
	closed  bool
}

// Compile-time check that frameWriter implements io.WriteCloser.
var _ io.WriteCloser = (*frameWriter)(nil)

func newFrameWriter(w io.Writer, level, workers int) *frameWriter {
	return &frameWriter{
		w:       w,
		level:   level,
		workers: max(workers, 1),
		buf:     make([]byte, 0, frameSize),
	}
}

// Compressing marks the writer as a compression layer.
func (f *frameWriter) Compressing() bool { return true }

func (f *frameWriter) Write(p []byte) (int, error) {
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(p)
	for len(p) > 0 {
		k := copy(f.buf[len(f.buf):cap(f.buf)], p)
		f.buf = f.buf[:len(f.buf)+k]
		p = p[k:]
		if len(f.buf) == frameSize {
			f.pending = append(f.pending, f.buf)
			f.buf = make([]byte, 0, frameSize)
			if len(f.pending) == f.workers {
				if err := f.flushPending(); err != nil {
					return n - len(p), err
				}
			}
		}
	}
	return n, nil
}

// Close writes any buffered frames and the terminator. It does not close
// the underlying writer.
func (f *frameWriter) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if len(f.buf) > 0 {
		f.pending = append(f.pending, f.buf)
		f.buf = nil
	}
	if err := f.flushPending(); err != nil {
		return err
	}
	var end [4]byte
	_, err := f.w.Write(end[:])
	return err
}

func (f *frameWriter) flushPending() error {
	frames := make([][]byte, len(f.pending))
	sem := make(chan struct{}, f.workers)
	errCh := make(chan error, len(f.pending))
	var wg sync.WaitGroup

	for i, raw := range f.pending {
		wg.Add(1)
		go func(i int, raw []byte) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			frame, err := compressFrame(raw, f.level)
			if err != nil {
				errCh <- fmt.Errorf("compressing frame %d: %w", i, err)
				return
			}
			frames[i] = frame
		}(i, raw)
	}

	wg.Wait()
	close(errCh)
	f.pending = f.pending[:0]

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	for _, frame := range frames {
		if _, err := f.w.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

func compressFrame(raw []byte, level int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(frameHeaderLen + len(raw)/2)
	out.Write(make([]byte, frameHeaderLen))

	fw, err := flate.NewWriter(&out, level)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(raw); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	frame := out.Bytes()
	binary.BigEndian.PutUint32(frame[0:], uint32(len(raw)))
	binary.BigEndian.PutUint32(frame[4:], uint32(len(frame)-frameHeaderLen))
	binary.BigEndian.PutUint64(frame[8:], xxhash.Sum64(raw))
	return frame, nil
}

// frameReader reverses frameWriter.
type frameReader struct {
	r    io.Reader
	cur  []byte
	comp []byte
	raw  []byte
	done bool
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

func (f *frameReader) Read(p []byte) (int, error) {
	for len(f.cur) == 0 {
		if f.done {
			return 0, io.EOF
		}
		if err := f.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, f.cur)
	f.cur = f.cur[n:]
	return n, nil
}

func (f *frameReader) next() error {
	var head [frameHeaderLen]byte
	if _, err := io.ReadFull(f.r, head[:4]); err != nil {
		return fmt.Errorf("reading frame header: %w", io.ErrUnexpectedEOF)
	}
	rawLen := binary.BigEndian.Uint32(head[0:])
	if rawLen == 0 {
		f.done = true
		return nil
	}
	if _, err := io.ReadFull(f.r, head[4:]); err != nil {
		return fmt.Errorf("reading frame header: %w", io.ErrUnexpectedEOF)
	}
	compLen := binary.BigEndian.Uint32(head[4:])
	sum := binary.BigEndian.Uint64(head[8:])
	if rawLen > frameSize || compLen > maxCompLen {
		return fmt.Errorf("fawefmt: frame too large (%d raw, %d compressed)", rawLen, compLen)
	}

	if cap(f.comp) < int(compLen) {
		f.comp = make([]byte, compLen)
	}
	f.comp = f.comp[:compLen]
	if _, err := io.ReadFull(f.r, f.comp); err != nil {
		return fmt.Errorf("reading frame: %w", err)
	}

	if cap(f.raw) < int(rawLen) {
		f.raw = make([]byte, rawLen)
	}
	f.raw = f.raw[:rawLen]
	fr := flate.NewReader(bytes.NewReader(f.comp))
	defer fr.Close()
	if _, err := io.ReadFull(fr, f.raw); err != nil {
		return fmt.Errorf("inflating frame: %w", err)
	}
	if xxhash.Sum64(f.raw) != sum {
		return ErrChecksum
	}
	f.cur = f.raw
	return nil
}

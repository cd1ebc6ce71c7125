package nbtio

import (
	"bytes"
	"io"
)

// Rewinder records what is read from a non-seekable stream so the stream
// can be replayed from offset 0 once, after a signature sniff.
type Rewinder struct {
	src      io.Reader
	recorded bytes.Buffer
	replay   *bytes.Reader
	frozen   bool
}

// NewRewinder starts recording reads from src.
func NewRewinder(src io.Reader) *Rewinder {
	return &Rewinder{src: src}
}

func (r *Rewinder) Read(p []byte) (int, error) {
	if r.replay != nil && r.replay.Len() > 0 {
		return r.replay.Read(p)
	}
	n, err := r.src.Read(p)
	if !r.frozen && n > 0 {
		r.recorded.Write(p[:n])
	}
	return n, err
}

// Rewind restarts the stream at offset 0 and stops recording. It may be
// called once.
func (r *Rewinder) Rewind() {
	r.frozen = true
	r.replay = bytes.NewReader(r.recorded.Bytes())
}

// Close closes the source when it is closable.
func (r *Rewinder) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

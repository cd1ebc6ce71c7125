package holder

import (
	"context"

	"github.com/blockforge/clipio/internal/volume"
)

// Multi is an ordered, append-only collection of holders discovered from
// one origin such as a directory or an archive URL. An empty Multi is a
// valid result. A Multi is not safe for concurrent Add.
type Multi struct {
	origin  string
	holders []Holder
}

// NewMulti returns an empty collection for origin.
func NewMulti(origin string) *Multi {
	return &Multi{origin: origin}
}

// Origin returns the discovery origin.
func (m *Multi) Origin() string { return m.origin }

// Add appends holders.
func (m *Multi) Add(h ...Holder) {
	m.holders = append(m.holders, h...)
}

// Holders returns the holders in insertion order.
func (m *Multi) Holders() []Holder {
	return append([]Holder(nil), m.holders...)
}

// Len returns the number of holders.
func (m *Multi) Len() int { return len(m.holders) }

// Clipboards decodes every holder in order and stops at the first error.
func (m *Multi) Clipboards(ctx context.Context) ([]*volume.Volume, error) {
	out := make([]*volume.Volume, 0, len(m.holders))
	for _, h := range m.holders {
		v, err := h.Clipboard(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

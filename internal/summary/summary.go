// Package summary describes a clipboard for sharing: its dimensions, who
// made it and how often each block id occurs.
package summary

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/blockforge/clipio/internal/bytestream"
	"github.com/blockforge/clipio/internal/volume"
)

// Encoding selects the wire form of a Summary.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ContentType returns the MIME type for e.
func (e Encoding) ContentType() string {
	if e == EncodingCBOR {
		return "application/cbor"
	}
	return "application/json"
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("summary: CBOR encoder initialization failed: " + err.Error())
	}
}

// Summary is the metadata published next to an uploaded clipboard.
type Summary struct {
	Width   int    `json:"width" cbor:"width"`
	Height  int    `json:"height" cbor:"height"`
	Length  int    `json:"length" cbor:"length"`
	Creator string `json:"creator,omitempty" cbor:"creator,omitempty"`

	// Blocks maps the low id byte to its cell count. Ids that never occur
	// are omitted.
	Blocks map[int]int64 `json:"blocks" cbor:"blocks"`

	// Entropy is the Shannon entropy of the id distribution in bits.
	Entropy float64 `json:"entropy" cbor:"entropy"`
}

// Build walks v once with the byte streamer and summarizes it.
func Build(v *volume.Volume, creator string) *Summary {
	counts := bytestream.Histogram(v)

	s := &Summary{
		Width:   v.Width(),
		Height:  v.Height(),
		Length:  v.Length(),
		Creator: creator,
		Blocks:  make(map[int]int64),
	}

	cells := float64(v.Cells())
	p := make([]float64, 0, len(counts))
	for id, n := range counts {
		if n == 0 {
			continue
		}
		s.Blocks[id] = n
		p = append(p, float64(n)/cells)
	}
	s.Entropy = stat.Entropy(p) / math.Ln2
	return s
}

// Cells returns the total cell count.
func (s *Summary) Cells() int64 {
	return int64(s.Width) * int64(s.Height) * int64(s.Length)
}

// NonAir returns the number of cells whose id byte is not zero.
func (s *Summary) NonAir() int64 {
	return s.Cells() - s.Blocks[0]
}

// Encode serializes s. CBOR output is deterministic.
func (s *Summary) Encode(e Encoding) ([]byte, error) {
	switch e {
	case EncodingJSON:
		return json.Marshal(s)
	case EncodingCBOR:
		return encMode.Marshal(s)
	default:
		return nil, fmt.Errorf("summary: unknown encoding %q", e)
	}
}

// Decode parses data produced by Encode.
func Decode(data []byte, e Encoding) (*Summary, error) {
	var s Summary
	var err error
	switch e {
	case EncodingJSON:
		err = json.Unmarshal(data, &s)
	case EncodingCBOR:
		err = cbor.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("summary: unknown encoding %q", e)
	}
	if err != nil {
		return nil, fmt.Errorf("summary: decoding %s: %w", e, err)
	}
	return &s, nil
}

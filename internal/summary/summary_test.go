package summary

import (
	"bytes"
	"math"
	"testing"

	"github.com/blockforge/clipio/internal/volume"
)

func testVolume(t *testing.T) *volume.Volume {
	t.Helper()
	v, err := volume.New(volume.Vec3{X: 2, Y: 2, Z: 2}, volume.Vec3{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Half stone, half air.
	for i := 0; i < 4; i++ {
		v.SetIndex(i, volume.Block{ID: 1})
	}
	return v
}

func TestBuild(t *testing.T) {
	s := Build(testVolume(t), "alice")

	if s.Width != 2 || s.Height != 2 || s.Length != 2 {
		t.Errorf("dims = %dx%dx%d, want 2x2x2", s.Width, s.Height, s.Length)
	}
	if s.Creator != "alice" {
		t.Errorf("Creator = %q, want alice", s.Creator)
	}
	if len(s.Blocks) != 2 || s.Blocks[0] != 4 || s.Blocks[1] != 4 {
		t.Errorf("Blocks = %v, want map[0:4 1:4]", s.Blocks)
	}
	if math.Abs(s.Entropy-1) > 1e-9 {
		t.Errorf("Entropy = %v, want 1", s.Entropy)
	}
	if s.NonAir() != 4 {
		t.Errorf("NonAir() = %d, want 4", s.NonAir())
	}
}

func TestBuild_Uniform(t *testing.T) {
	v, _ := volume.New(volume.Vec3{X: 3, Y: 1, Z: 1}, volume.Vec3{})
	s := Build(v, "")
	if s.Entropy != 0 {
		t.Errorf("Entropy = %v, want 0", s.Entropy)
	}
	if s.Blocks[0] != 3 {
		t.Errorf("Blocks[0] = %d, want 3", s.Blocks[0])
	}
}

func TestBuild_HighIDsFoldToLowByte(t *testing.T) {
	v, _ := volume.New(volume.Vec3{X: 2, Y: 1, Z: 1}, volume.Vec3{})
	v.SetIndex(0, volume.Block{ID: 0x0101})
	v.SetIndex(1, volume.Block{ID: 0x0001})
	s := Build(v, "")
	if s.Blocks[1] != 2 {
		t.Errorf("Blocks[1] = %d, want 2", s.Blocks[1])
	}
}

func TestEncodeDecode(t *testing.T) {
	want := Build(testVolume(t), "bob")
	for _, e := range []Encoding{EncodingJSON, EncodingCBOR} {
		data, err := want.Encode(e)
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", e, err)
		}
		got, err := Decode(data, e)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", e, err)
		}
		if got.Creator != want.Creator || got.Blocks[1] != want.Blocks[1] || got.Entropy != want.Entropy {
			t.Errorf("Decode(%s) = %+v, want %+v", e, got, want)
		}
	}
}

func TestEncode_CBORDeterministic(t *testing.T) {
	s := Build(testVolume(t), "carol")
	a, _ := s.Encode(EncodingCBOR)
	b, _ := s.Encode(EncodingCBOR)
	if !bytes.Equal(a, b) {
		t.Error("CBOR encoding is not deterministic")
	}
}

func TestEncode_Unknown(t *testing.T) {
	if _, err := Build(testVolume(t), "").Encode("xml"); err == nil {
		t.Error("Encode(xml) expected error")
	}
}

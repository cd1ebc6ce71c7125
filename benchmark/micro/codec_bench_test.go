package micro

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/blockforge/clipio/internal/bytestream"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/fawefmt"
	"github.com/blockforge/clipio/internal/format/schematicfmt"
	"github.com/blockforge/clipio/internal/store/cachedstore"
	"github.com/blockforge/clipio/internal/store/cachedstore/cachestrategy/lru"
	"github.com/blockforge/clipio/internal/store/cachedstore/memory"
	"github.com/blockforge/clipio/internal/store/memstore"
	"github.com/blockforge/clipio/internal/volume"
)

// cube builds an n×n×n volume with a layered, mostly repetitive fill.
func cube(b *testing.B, n int) *volume.Volume {
	b.Helper()
	v, err := volume.New(volume.Vec3{X: n, Y: n, Z: n}, volume.Vec3{})
	if err != nil {
		b.Fatalf("creating volume: %v", err)
	}
	for i := 0; i < v.Cells(); i++ {
		p := v.Position(i)
		v.SetIndex(i, volume.Block{ID: uint16(p.Y%4 + 1), Data: uint8(p.X % 2)})
	}
	return v
}

func benchFormats() []format.Format {
	return []format.Format{
		schematicfmt.New(),
		fawefmt.New(),
		fawefmt.New(fawefmt.WithLevel(0)),
	}
}

func encode(b *testing.B, f format.Format, v *volume.Volume) []byte {
	b.Helper()
	var buf bytes.Buffer
	if err := format.Write(f, &buf, v); err != nil {
		b.Fatalf("encoding %s: %v", f.Name(), err)
	}
	return buf.Bytes()
}

// BenchmarkEncode measures full-volume encoding per format.
func BenchmarkEncode(b *testing.B) {
	v := cube(b, 64)
	for _, f := range benchFormats() {
		b.Run(fmt.Sprintf("%s/%d", f.Name(), len(encode(b, f, v))), func(b *testing.B) {
			b.SetBytes(int64(v.Cells()))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := format.Write(f, io.Discard, v); err != nil {
					b.Fatalf("encode error: %v", err)
				}
			}
		})
	}
}

// BenchmarkDecode measures full-volume decoding per format.
func BenchmarkDecode(b *testing.B) {
	v := cube(b, 64)
	for _, f := range benchFormats() {
		data := encode(b, f, v)
		b.Run(f.Name(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := format.Read(f, bytes.NewReader(data), nil); err != nil {
					b.Fatalf("decode error: %v", err)
				}
			}
		})
	}
}

// BenchmarkHistogram measures streaming id bytes out of a decoded volume.
func BenchmarkHistogram(b *testing.B) {
	v := cube(b, 128)
	b.SetBytes(int64(v.Cells()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bytestream.Histogram(v)
	}
}

// BenchmarkStreamRaster measures id streaming straight from an
// uncompressed FAWE payload, without building a volume.
func BenchmarkStreamRaster(b *testing.B) {
	v := cube(b, 64)
	data := encode(b, fawefmt.New(fawefmt.WithLevel(0)), v)
	b.SetBytes(int64(v.Cells()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := fawefmt.StreamIDs(bytes.NewReader(data), func(int, byte) {}); err != nil {
			b.Fatalf("stream error: %v", err)
		}
	}
}

// BenchmarkStoreRead_WarmCache measures cached object reads.
func BenchmarkStoreRead_WarmCache(b *testing.B) {
	base := memstore.New()
	data := encode(b, fawefmt.New(), cube(b, 32))
	for i := 0; i < 16; i++ {
		base.Put(fmt.Sprintf("builds/%d.fawe", i), data)
	}

	strategy, err := lru.New(16)
	if err != nil {
		b.Fatalf("creating LRU strategy: %v", err)
	}
	st := cachedstore.New(base, memory.New(strategy, nil))
	defer st.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Read(ctx, fmt.Sprintf("builds/%d.fawe", i%16)); err != nil {
			b.Fatalf("read error: %v", err)
		}
	}
}

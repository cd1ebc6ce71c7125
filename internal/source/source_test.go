package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockforge/clipio/internal/store"
	"github.com/blockforge/clipio/internal/store/memstore"
)

func readAll(t *testing.T, src ByteSource) string {
	t.Helper()
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(data)
}

func TestBytes_Reopen(t *testing.T) {
	src := Bytes("abc")
	if got := readAll(t, src); got != "abc" {
		t.Errorf("first read = %q", got)
	}
	if got := readAll(t, src); got != "abc" {
		t.Errorf("second read = %q", got)
	}
	if src.Size() != 3 {
		t.Errorf("Size() = %d, want 3", src.Size())
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.schematic")
	if err := os.WriteFile(path, []byte("file"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, File(path)); got != "file" {
		t.Errorf("read = %q", got)
	}
	if got := File(path).Size(); got != 4 {
		t.Errorf("Size() = %d, want 4", got)
	}
	if got := File(path + ".missing").Size(); got != -1 {
		t.Errorf("Size(missing) = %d, want -1", got)
	}
}

func TestObject(t *testing.T) {
	s := memstore.New()
	s.Put("k", []byte("object"))
	if got := readAll(t, Object{Store: s, Key: "k"}); got != "object" {
		t.Errorf("read = %q", got)
	}

	_, err := Object{Store: s, Key: "missing"}.Open(context.Background())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}
}

type byteCounter struct{ n int64 }

func (c *byteCounter) IncCounter(_ string, d int64)     { c.n += d }
func (c *byteCounter) SetGauge(string, int64)           {}
func (c *byteCounter) ObserveHistogram(string, float64) {}

func TestCounted(t *testing.T) {
	c := &byteCounter{}
	readAll(t, Counted(Bytes("12345"), c))
	if c.n != 5 {
		t.Errorf("counted %d bytes, want 5", c.n)
	}
}

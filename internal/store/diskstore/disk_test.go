package diskstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/blockforge/clipio/internal/codec/gzipcodec"
	"github.com/blockforge/clipio/internal/codec/noopcodec"
	"github.com/blockforge/clipio/internal/store"
)

func TestStore_Read(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "alice"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	data := []byte("schematic bytes")
	if err := os.WriteFile(filepath.Join(dir, "alice", "house.schematic"), data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := New(dir, noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	got, err := s.Read(context.Background(), "alice/house.schematic")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read() = %q, want %q", got, data)
	}
}

func TestStore_ReadCompressed(t *testing.T) {
	dir := t.TempDir()
	c := gzipcodec.New()

	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		t.Fatalf("Writer() error = %v", err)
	}
	w.Write([]byte("inner"))
	w.Close()
	if err := os.WriteFile(filepath.Join(dir, "a.fawe"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, c)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := s.Read(context.Background(), "a.fawe")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "inner" {
		t.Errorf("Read() = %q, want %q", got, "inner")
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Read(context.Background(), "missing.schematic")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ReadRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir(), noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Read(context.Background(), "../etc/passwd"); err == nil || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want traversal error", err)
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.schematic", "b.SCHEMATIC", "c.nbt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.schematic"), 0755); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, noopcodec.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := s.List(context.Background(), "", "schematic")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// Directory order is unspecified.
	slices.Sort(got)
	want := []string{"a.schematic", "b.SCHEMATIC"}
	if !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	missing, err := s.List(context.Background(), "nobody", "schematic")
	if err != nil || len(missing) != 0 {
		t.Errorf("List(missing dir) = %v, %v; want empty", missing, err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path", noopcodec.New())
	if err == nil {
		t.Error("New() with invalid path should return error")
	}
}

func TestNew_NotDirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(f, noopcodec.New())
	if err == nil {
		t.Error("New() with file (not directory) should return error")
	}
}

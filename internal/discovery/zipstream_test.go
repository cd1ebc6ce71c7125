package discovery

import (
	"bufio"
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestZipStream_Entries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{"a.txt": "alpha", "b.txt": "bravo bravo bravo"}
	for _, name := range []string{"a.txt", "b.txt"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, files[name])
	}
	zw.Close()

	br := bufio.NewReader(&buf)
	if !isZip(br) {
		t.Fatal("isZip() = false, want true")
	}
	zs := newZipStream(br)

	var got []string
	for {
		e, err := zs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		data, err := io.ReadAll(e)
		if err != nil {
			t.Fatalf("reading %s: %v", e.Name, err)
		}
		if string(data) != files[e.Name] {
			t.Errorf("%s = %q, want %q", e.Name, data, files[e.Name])
		}
		got = append(got, e.Name)
	}
	if len(got) != 2 {
		t.Errorf("entries = %v, want 2", got)
	}
}

func TestZipStream_SkipUnreadEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"skip.bin", "keep.bin"} {
		w, _ := zw.Create(name)
		w.Write(bytes.Repeat([]byte(name), 1000))
	}
	zw.Close()

	zs := newZipStream(bufio.NewReader(&buf))
	if _, err := zs.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	e, err := zs.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if e.Name != "keep.bin" {
		t.Errorf("second entry = %q, want keep.bin", e.Name)
	}
}

func TestZipStream_BadChecksum(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	payload := []byte("payload")
	w, _ := zw.CreateRaw(&zip.FileHeader{
		Name:               "a.bin",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(payload),
		CompressedSize64:   uint64(len(payload)),
		UncompressedSize64: uint64(len(payload)),
	})
	w.Write(payload)
	zw.Close()

	data := buf.Bytes()
	// Corrupt the first payload byte after the 30-byte header and name.
	data[30+len("a.bin")] ^= 0xff

	zs := newZipStream(bufio.NewReader(bytes.NewReader(data)))
	e, err := zs.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := io.ReadAll(e); !errors.Is(err, errZipChecksum) {
		t.Errorf("ReadAll() error = %v, want checksum error", err)
	}
}

func TestIsZip_PlainData(t *testing.T) {
	if isZip(bufio.NewReader(bytes.NewReader([]byte("FAWE....")))) {
		t.Error("isZip() = true for non-zip data")
	}
}

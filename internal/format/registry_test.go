package format

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockforge/clipio/internal/volume"
)

type fakeFormat struct {
	name    string
	aliases []string
	ext     string
	detect  func(path string) bool
	caps    Capability
	last    *fakeReader
}

func (f *fakeFormat) Name() string      { return f.name }
func (f *fakeFormat) Aliases() []string { return f.aliases }
func (f *fakeFormat) Extension() string { return f.ext }

func (f *fakeFormat) Capabilities() Capability {
	return CapRead | f.caps
}

func (f *fakeFormat) NewWriter(io.Writer) (Writer, error) {
	return nil, ErrUnsupported
}

func (f *fakeFormat) Detect(path string) bool {
	if f.detect != nil {
		return f.detect(path)
	}
	return HasSuffix(path, f.ext)
}

func (f *fakeFormat) NewReader(io.Reader) (Reader, error) {
	f.last = &fakeReader{}
	return f.last, nil
}

type fakeReader struct {
	gotContext *WorldContext
	closed     bool
}

func (r *fakeReader) Read(wc *WorldContext) (*volume.Volume, error) {
	r.gotContext = wc
	return volume.New(volume.Vec3{X: 1, Y: 1, Z: 1}, volume.Vec3{})
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestRegistry_LookupAllAliases(t *testing.T) {
	r := NewRegistry(nil)
	a := &fakeFormat{name: "A", aliases: []string{"alpha", "al"}, ext: "a"}
	b := &fakeFormat{name: "B", aliases: []string{"beta", "BEE"}, ext: "b"}
	r.MustRegister(a)
	r.MustRegister(b)

	for _, f := range []*fakeFormat{a, b} {
		for _, alias := range f.Aliases() {
			for _, variant := range []string{alias, "  " + alias + "\t", fmt.Sprintf(" %s ", strings.ToUpper(alias))} {
				got, ok := r.Lookup(variant)
				require.True(t, ok, "Lookup(%q)", variant)
				require.Same(t, f, got)
			}
		}
	}

	_, ok := r.Lookup("gamma")
	require.False(t, ok)
}

func TestRegistry_DuplicateAlias(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(&fakeFormat{name: "A", aliases: []string{"shared", "a"}, ext: "a"})

	incoming := &fakeFormat{name: "B", aliases: []string{"b", "Shared"}, ext: "b"}
	_, err := r.Register(incoming)
	require.ErrorIs(t, err, ErrDuplicateAlias)

	var dup *DuplicateAliasError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "shared", dup.Alias)
	require.Equal(t, "A", dup.Existing)

	// Nothing from the failed batch was published.
	_, ok := r.Lookup("b")
	require.False(t, ok)
	require.Len(t, r.Formats(), 1)

	_, registered := r.RegisterOrWarn(incoming)
	require.False(t, registered)
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	f := &fakeFormat{name: "A", aliases: []string{"a"}, ext: "a"}
	h1 := r.MustRegister(f)
	h2 := r.MustRegister(f)
	require.Equal(t, h1, h2)
	require.Len(t, r.Formats(), 1)
}

func TestRegistry_DetectOrder(t *testing.T) {
	r := NewRegistry(nil)
	// Both claim the ".dat" suffix; only the first checks a signature.
	signature := &fakeFormat{name: "SIG", aliases: []string{"sig"}, ext: "dat",
		detect: func(path string) bool { return path == "match.dat" }}
	suffix := &fakeFormat{name: "SUFFIX", aliases: []string{"suffix"}, ext: "dat"}
	r.MustRegister(signature)
	r.MustRegister(suffix)

	got, ok := r.Detect("match.dat")
	require.True(t, ok)
	require.Same(t, signature, got)

	got, ok = r.Detect("other.dat")
	require.True(t, ok)
	require.Same(t, suffix, got)

	_, ok = r.Detect("file.txt")
	require.False(t, ok)
}

func TestRegistry_ByExtension(t *testing.T) {
	r := NewRegistry(nil)
	f := &fakeFormat{name: "A", aliases: []string{"alpha", "alt"}, ext: "a"}
	r.MustRegister(f)

	for _, ext := range []string{"a", ".a", "A", "alt"} {
		got, ok := r.ByExtension(ext)
		require.True(t, ok, "ByExtension(%q)", ext)
		require.Same(t, f, got)
	}
}

func TestRegistry_ConcurrentLookupDuringRegister(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		name := fmt.Sprintf("f%d", i)
		go func() {
			defer wg.Done()
			r.RegisterOrWarn(&fakeFormat{name: name, aliases: []string{name, name + "-x"}, ext: name})
		}()
		go func() {
			defer wg.Done()
			// A format is visible under both aliases or neither.
			f1, ok1 := r.Lookup(name)
			f2, ok2 := r.Lookup(name + "-x")
			if ok1 && ok2 && f1 != f2 {
				t.Errorf("aliases of %s resolved to different formats", name)
			}
			_ = r.Formats()
		}()
	}
	wg.Wait()
	require.Len(t, r.Formats(), 50)
}

func TestRead_PassesContextOnlyWhenDeclared(t *testing.T) {
	wc := &WorldContext{World: "overworld"}

	free := &fakeFormat{name: "A", aliases: []string{"a"}, ext: "a"}
	_, err := Read(free, nil, wc)
	require.NoError(t, err)
	require.Nil(t, free.last.gotContext)
	require.True(t, free.last.closed)

	aware := &fakeFormat{name: "B", aliases: []string{"b"}, ext: "b", caps: CapWorldContext}
	_, err = Read(aware, nil, wc)
	require.NoError(t, err)
	require.Same(t, wc, aware.last.gotContext)
}

func TestWrite_Unsupported(t *testing.T) {
	f := &fakeFormat{name: "A", aliases: []string{"a"}, ext: "a"}
	err := Write(f, io.Discard, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCapability_String(t *testing.T) {
	require.Equal(t, "none", Capability(0).String())
	require.Equal(t, "read,write", (CapRead | CapWrite).String())
	require.True(t, (CapRead | CapWorldContext).Has(CapWorldContext))
	require.False(t, CapRead.Has(CapWrite))
}

// sliceFormat is a value type holding a slice, so == on it panics.
type sliceFormat struct {
	*fakeFormat
	tags []string
}

func TestRegistry_RejectsIncomparableFormat(t *testing.T) {
	r := NewRegistry(nil)
	f := sliceFormat{fakeFormat: &fakeFormat{name: "S", aliases: []string{"s"}, ext: "s"}, tags: []string{"x"}}

	_, err := r.Register(f)
	require.ErrorIs(t, err, ErrNotComparable)

	for i := 0; i < 2; i++ {
		_, registered := r.RegisterOrWarn(f)
		require.False(t, registered)
	}
	require.Empty(t, r.Formats())
	_, ok := r.Lookup("s")
	require.False(t, ok)
}

type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Write(p []byte) (int, error) { return len(p), nil }
func (c *closeCounter) Close() error                { c.closes++; return nil }

func TestWrite_ClosesTransportWhenConstructorFails(t *testing.T) {
	f := &fakeFormat{name: "A", aliases: []string{"a"}, ext: "a"}
	sink := &closeCounter{}
	err := Write(f, sink, nil)
	require.ErrorIs(t, err, ErrUnsupported)
	require.Equal(t, 1, sink.closes)
}

// brokenFormat rejects every input in its reader constructor.
type brokenFormat struct{ *fakeFormat }

func (brokenFormat) NewReader(io.Reader) (Reader, error) {
	return nil, errors.New("bad header")
}

func TestRead_ClosesTransportWhenConstructorFails(t *testing.T) {
	f := brokenFormat{&fakeFormat{name: "A", aliases: []string{"a"}, ext: "a"}}
	src := &closeCounter{Reader: strings.NewReader("junk")}
	_, err := Read(f, src, nil)
	require.Error(t, err)
	require.Equal(t, 1, src.closes)
}

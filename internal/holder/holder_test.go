package holder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/fawefmt"
	"github.com/blockforge/clipio/internal/format/schematicfmt"
	"github.com/blockforge/clipio/internal/source"
	"github.com/blockforge/clipio/internal/volume"
)

// flakySource fails the first failures opens, counts every open and can
// block opens until release is closed.
type flakySource struct {
	data     []byte
	failures int32
	opens    atomic.Int32
	release  chan struct{}
}

func (s *flakySource) Open(ctx context.Context) (io.ReadCloser, error) {
	n := s.opens.Add(1)
	if s.release != nil {
		<-s.release
	}
	if n <= s.failures {
		return nil, errors.New("transient")
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *flakySource) Size() int64 { return int64(len(s.data)) }

func encoded(t *testing.T) (*volume.Volume, []byte) {
	t.Helper()
	v, err := volume.New(volume.Vec3{X: 2, Y: 1, Z: 1}, volume.Vec3{})
	require.NoError(t, err)
	v.SetIndex(1, volume.Block{ID: 7})
	var buf bytes.Buffer
	require.NoError(t, format.Write(fawefmt.New(), &buf, v))
	return v, buf.Bytes()
}

func TestLazy_NoIOBeforeAccess(t *testing.T) {
	src := &flakySource{}
	wc := &format.WorldContext{World: "w"}
	l := NewLazy("file:a.fawe", src, fawefmt.New(), wc)

	require.Equal(t, "file:a.fawe", l.URI())
	require.Equal(t, "FAWE", l.Format().Name())
	require.Same(t, wc, l.World())
	require.Equal(t, Unresolved, l.State())
	require.Zero(t, src.opens.Load())
}

func TestLazy_CachesResult(t *testing.T) {
	want, data := encoded(t)
	src := &flakySource{data: data}
	l := NewLazy("a", src, fawefmt.New(), nil)

	v1, err := l.Clipboard(context.Background())
	require.NoError(t, err)
	v2, err := l.Clipboard(context.Background())
	require.NoError(t, err)

	require.Same(t, v1, v2)
	require.True(t, want.Equal(v1))
	require.Equal(t, int32(1), src.opens.Load())
	require.Equal(t, Resolved, l.State())
}

func TestLazy_RetryAfterFailure(t *testing.T) {
	_, data := encoded(t)
	src := &flakySource{data: data, failures: 1}
	l := NewLazy("a", src, fawefmt.New(), nil)

	_, err := l.Clipboard(context.Background())
	require.Error(t, err)
	require.Equal(t, Failed, l.State())

	v, err := l.Clipboard(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, Resolved, l.State())
	require.Equal(t, int32(2), src.opens.Load())
}

func TestLazy_ConcurrentCallersShareOneDecode(t *testing.T) {
	_, data := encoded(t)
	src := &flakySource{data: data, release: make(chan struct{})}
	l := NewLazy("a", src, fawefmt.New(), nil)

	const callers = 8
	results := make([]*volume.Volume, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Clipboard(context.Background())
			if err != nil {
				t.Errorf("Clipboard() error = %v", err)
				return
			}
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return l.State() == Resolving }, time.Second, time.Millisecond)
	close(src.release)
	wg.Wait()

	require.Equal(t, int32(1), src.opens.Load())
	for _, v := range results {
		require.Same(t, results[0], v)
	}
}

func TestLazy_WaitHonorsContext(t *testing.T) {
	_, data := encoded(t)
	src := &flakySource{data: data, release: make(chan struct{})}
	l := NewLazy("a", src, fawefmt.New(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Clipboard(context.Background())
	}()
	require.Eventually(t, func() bool { return l.State() == Resolving }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := l.Clipboard(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(src.release)
	<-done
}

func TestMulti(t *testing.T) {
	want, data := encoded(t)
	m := NewMulti("dir:/saves")
	require.Zero(t, m.Len())

	m.Add(
		NewLazy("a", source.Bytes(data), fawefmt.New(), nil),
		NewStatic("b", fawefmt.New(), nil, want),
	)
	require.Equal(t, 2, m.Len())
	require.Equal(t, "dir:/saves", m.Origin())
	require.Equal(t, "a", m.Holders()[0].URI())

	vs, err := m.Clipboards(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 2)
	require.True(t, want.Equal(vs[0]))
	require.Same(t, want, vs[1])
}

func TestState_String(t *testing.T) {
	require.Equal(t, "resolving", Resolving.String())
	require.Equal(t, "State(9)", State(9).String())
}

// closeCountingSource hands out readers that count Close calls.
type closeCountingSource struct {
	data   []byte
	closes atomic.Int32
}

type countedReadCloser struct {
	io.Reader
	closes *atomic.Int32
}

func (r countedReadCloser) Close() error {
	r.closes.Add(1)
	return nil
}

func (s *closeCountingSource) Open(context.Context) (io.ReadCloser, error) {
	return countedReadCloser{Reader: bytes.NewReader(s.data), closes: &s.closes}, nil
}

func (s *closeCountingSource) Size() int64 { return int64(len(s.data)) }

func TestLazy_ClosesSourceOnce(t *testing.T) {
	_, data := encoded(t)
	tests := map[string]struct {
		f       format.Format
		data    []byte
		wantErr bool
	}{
		"decoded":          {fawefmt.New(), data, false},
		"truncated header": {fawefmt.New(), []byte(fawefmt.Magic), true},
		"rejected input":   {schematicfmt.New(), []byte("not gzip"), true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src := &closeCountingSource{data: tt.data}
			_, err := NewLazy(name, src, tt.f, nil).Clipboard(context.Background())
			require.Equal(t, tt.wantErr, err != nil, "error = %v", err)
			require.Equal(t, int32(1), src.closes.Load())
		})
	}
}

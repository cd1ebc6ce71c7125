// Package discovery finds clipboards in a directory, a storage bucket or a
// remote zip archive and wraps each one in a lazy holder.
//
// Every strategy yields a holder.Multi and fails with ErrNotFound when it
// finds nothing, which is distinct from an I/O failure.
package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/holder"
	"github.com/blockforge/clipio/internal/source"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/store"
)

// ErrNotFound is returned when discovery produces no holders.
var ErrNotFound = errors.New("discovery: no clipboards found")

// DefaultMaxEntryBytes bounds a single buffered archive entry.
const DefaultMaxEntryBytes = 64 << 20

// Discoverer runs discovery strategies.
type Discoverer struct {
	fetcher       *Fetcher
	logger        *zap.Logger
	collector     stats.Collector
	maxEntryBytes int64
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithFetcher sets the HTTP fetcher used for archives.
func WithFetcher(f *Fetcher) Option {
	return func(d *Discoverer) { d.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Discoverer) { d.logger = logger }
}

// WithStats sets the metrics collector. Holders created by the
// Discoverer report to it as well.
func WithStats(c stats.Collector) Option {
	return func(d *Discoverer) { d.collector = c }
}

// WithMaxEntryBytes bounds the size of one buffered archive entry.
func WithMaxEntryBytes(n int64) Option {
	return func(d *Discoverer) { d.maxEntryBytes = n }
}

// New returns a Discoverer.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{
		logger:        zap.NewNop(),
		collector:     stats.NewNoop(),
		maxEntryBytes: DefaultMaxEntryBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fetcher == nil {
		d.fetcher = NewFetcher()
	}
	d.logger = d.logger.Named("discovery")
	return d
}

func (d *Discoverer) lazy(uri string, src source.ByteSource, f format.Format, wc *format.WorldContext) *holder.Lazy {
	return holder.NewLazy(uri, source.Counted(src, d.collector), f, wc,
		holder.WithLogger(d.logger),
		holder.WithStats(d.collector),
	)
}

// Matches reports whether an entry or file name carries one of the
// format's extensions or aliases.
func Matches(name string, f format.Format) bool {
	return format.HasSuffix(name, append([]string{f.Extension()}, f.Aliases()...)...)
}

// Directory builds one holder per regular file directly in dir that
// matches f, in directory listing order. The order is not sorted.
func (d *Discoverer) Directory(dir string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	h, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	defer h.Close()

	entries, err := h.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	m := holder.NewMulti(dir)
	for _, e := range entries {
		if !e.Type().IsRegular() || !Matches(e.Name(), f) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m.Add(d.lazy(path, source.File(path), f, wc))
	}
	return d.finish(m)
}

// Bucket lists prefix in st and builds one holder per matching object.
func (d *Discoverer) Bucket(ctx context.Context, st store.Store, prefix string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	m := holder.NewMulti(prefix)
	for _, ext := range append([]string{f.Extension()}, f.Aliases()...) {
		keys, err := st.List(ctx, prefix, ext)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			m.Add(d.lazy(key, source.Object{Store: st, Key: key}, f, wc))
		}
	}
	return d.finish(dedupe(m))
}

// dedupe drops holders whose URI was already seen, keeping the first.
func dedupe(m *holder.Multi) *holder.Multi {
	seen := make(map[string]bool, m.Len())
	out := holder.NewMulti(m.Origin())
	for _, h := range m.Holders() {
		if !seen[h.URI()] {
			seen[h.URI()] = true
			out.Add(h)
		}
	}
	return out
}

// Archive streams the zip archive at url and buffers every entry matching
// f in memory. A body that is not a zip archive is taken as a single
// clipboard.
//
// Entries that cannot be read are logged and skipped. When holders were
// collected the Multi is returned together with a non-nil error listing
// the skipped entries; when none were, the error wraps ErrNotFound.
func (d *Discoverer) Archive(ctx context.Context, url string, f format.Format, wc *format.WorldContext) (*holder.Multi, error) {
	body, _, err := d.fetcher.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	br := bufio.NewReader(body)
	m := holder.NewMulti(url)

	if !isZip(br) {
		data, err := d.buffer(br)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", url, err)
		}
		m.Add(d.lazy(url, source.Bytes(data), f, wc))
		return d.finish(m)
	}

	var errs []error
	zs := newZipStream(br)
	for {
		entry, err := zs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, d.entryError(url, "", err))
			break
		}
		if strings.HasSuffix(entry.Name, "/") || !Matches(entry.Name, f) {
			continue
		}

		data, err := d.buffer(entry)
		if err != nil {
			errs = append(errs, d.entryError(url, entry.Name, err))
			continue
		}
		d.collector.ObserveHistogram(stats.MetricArchiveBytes, float64(len(data)))
		m.Add(d.lazy(url+"#"+entry.Name, source.Bytes(data), f, wc))
	}

	m, err = d.finish(m)
	if err != nil {
		return nil, errors.Join(append([]error{err}, errs...)...)
	}
	return m, errors.Join(errs...)
}

func (d *Discoverer) entryError(url, name string, err error) error {
	d.collector.IncCounter(stats.MetricArchiveErrors, 1)
	d.logger.Warn("skipping archive entry",
		zap.String("url", url),
		zap.String("entry", name),
		zap.Error(err),
	)
	if name == "" {
		return err
	}
	return fmt.Errorf("entry %s: %w", name, err)
}

// buffer reads r fully, failing if it exceeds the entry limit.
func (d *Discoverer) buffer(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > d.maxEntryBytes {
		return nil, fmt.Errorf("entry exceeds %d bytes", d.maxEntryBytes)
	}
	return data, nil
}

func (d *Discoverer) finish(m *holder.Multi) (*holder.Multi, error) {
	if m.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, m.Origin())
	}
	d.collector.IncCounter(stats.MetricHoldersDiscovered, int64(m.Len()))
	d.logger.Debug("discovered clipboards",
		zap.String("origin", m.Origin()),
		zap.Int("count", m.Len()),
	)
	return m, nil
}

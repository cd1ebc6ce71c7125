// Package clipio loads and saves voxel clipboards ("schematics") in several
// file formats, from files, directories, object stores and remote archives.
//
// Example usage:
//
//	loader, err := clipio.New(
//	    clipio.WithConfig(cfg),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loader.Close()
//
//	clips, err := loader.LoadAll(ctx, clipio.User{ID: id}, "castle")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, h := range clips.Holders() {
//	    v, err := h.Clipboard(ctx)
//	    ...
//	}
package clipio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/config"
	"github.com/blockforge/clipio/internal/discovery"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/holder"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/store"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNotFound indicates an input resolved to no clipboards.
	ErrNotFound = errors.New("clipio: no clipboards found")

	// ErrUnauthorized indicates the actor may not load the input.
	ErrUnauthorized = errors.New("clipio: unauthorized")

	// ErrUnknownFormat indicates no registered format matched.
	ErrUnknownFormat = errors.New("clipio: unknown format")

	// ErrClosed indicates the loader has been closed.
	ErrClosed = errors.New("clipio: loader closed")
)

// Loader resolves user inputs to clipboard holders.
// A Loader is safe for concurrent use by multiple goroutines.
type Loader struct {
	registry   *format.Registry
	format     format.Format
	cfg        *config.Config
	store      store.Store
	discoverer *discovery.Discoverer
	stats      stats.Collector
	logger     *zap.Logger
	closed     atomic.Bool
}

// New creates a Loader with the given options.
// If no options are provided, the built-in formats and default
// configuration are used.
func New(opts ...Option) (*Loader, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.config == nil {
		return nil, errors.New("clipio: nil config")
	}

	f := cfg.format
	if f == nil {
		var ok bool
		f, ok = cfg.registry.Lookup(cfg.config.DefaultFormat)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.config.DefaultFormat)
		}
	}

	discoveryOpts := []discovery.Option{
		discovery.WithLogger(cfg.logger),
		discovery.WithStats(cfg.stats),
		discovery.WithMaxEntryBytes(cfg.config.MaxArchiveBytes),
	}
	if cfg.fetcher != nil {
		discoveryOpts = append(discoveryOpts, discovery.WithFetcher(cfg.fetcher))
	}

	l := &Loader{
		registry:   cfg.registry,
		format:     f,
		cfg:        cfg.config,
		store:      cfg.store,
		discoverer: discovery.New(discoveryOpts...),
		stats:      cfg.stats,
		logger:     cfg.logger,
	}

	l.logger.Debug("loader initialized",
		zap.String("format", f.Name()),
		zap.String("saveDir", l.cfg.SaveDir),
		zap.Bool("store", l.store != nil),
	)

	return l, nil
}

// Registry returns the format registry the loader resolves formats with.
func (l *Loader) Registry() *format.Registry {
	return l.registry
}

// Format returns the format used when an input does not name one.
func (l *Loader) Format() format.Format {
	return l.format
}

// Config returns the loader configuration.
func (l *Loader) Config() *config.Config {
	return l.cfg
}

// Hold decodes r immediately and returns a resolved holder for uri. The
// format is taken from the uri's extension, falling back to the loader's
// default format.
func (l *Loader) Hold(ctx context.Context, actor Actor, uri string, r io.Reader) (*holder.Static, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := l.format
	if ext := strings.TrimPrefix(path.Ext(uri), "."); ext != "" {
		if g, ok := l.registry.ByExtension(ext); ok {
			f = g
		}
	}

	wc := worldContext(actor)
	v, err := format.Read(f, r, wc)
	if err != nil {
		l.stats.IncCounter(stats.MetricDecodeFailures, 1)
		return nil, fmt.Errorf("decoding %s: %w", uri, err)
	}
	l.stats.IncCounter(stats.MetricDecodes, 1)
	return holder.NewStatic(uri, f, wc, v), nil
}

// Close releases the store, if one was configured.
// After Close, the loader should not be used.
func (l *Loader) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	l.logger.Debug("loader closed")
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

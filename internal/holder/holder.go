// Package holder binds a clipboard identity to either a decoded volume or
// a deferred decode of a byte source.
package holder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/source"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/volume"
)

// Holder gives access to one clipboard.
type Holder interface {
	// URI identifies where the clipboard came from.
	URI() string

	// Format is the format the clipboard is decoded with.
	Format() format.Format

	// World is the context the clipboard is loaded for. It may be nil.
	World() *format.WorldContext

	// Clipboard returns the decoded volume.
	Clipboard(ctx context.Context) (*volume.Volume, error)
}

// State is the decode state of a Lazy holder.
type State int32

// Lazy holder states.
const (
	Unresolved State = iota
	Resolving
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Compile-time checks that both holders implement Holder.
var (
	_ Holder = (*Static)(nil)
	_ Holder = (*Lazy)(nil)
)

// Static holds an already decoded volume.
type Static struct {
	uri string
	f   format.Format
	wc  *format.WorldContext
	v   *volume.Volume
}

// NewStatic returns a holder for a decoded volume.
func NewStatic(uri string, f format.Format, wc *format.WorldContext, v *volume.Volume) *Static {
	return &Static{uri: uri, f: f, wc: wc, v: v}
}

func (s *Static) URI() string                 { return s.uri }
func (s *Static) Format() format.Format       { return s.f }
func (s *Static) World() *format.WorldContext { return s.wc }

// Clipboard returns the held volume.
func (s *Static) Clipboard(context.Context) (*volume.Volume, error) {
	return s.v, nil
}

// Lazy decodes its source on first access and caches the result.
//
// Concurrent callers are serialized: one decode runs and the others wait
// for it, then see its result. A failed decode is not cached, so the next
// call decodes again.
type Lazy struct {
	uri string
	src source.ByteSource
	f   format.Format
	wc  *format.WorldContext

	logger    *zap.Logger
	collector stats.Collector

	// sem is a one-slot lock that waiting callers can abandon.
	sem   chan struct{}
	state atomic.Int32
	v     *volume.Volume
}

// Option configures a Lazy holder.
type Option func(*Lazy)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Lazy) { l.logger = logger }
}

// WithStats sets the metrics collector.
func WithStats(c stats.Collector) Option {
	return func(l *Lazy) { l.collector = c }
}

// NewLazy returns an unresolved holder. No I/O happens until Clipboard.
func NewLazy(uri string, src source.ByteSource, f format.Format, wc *format.WorldContext, opts ...Option) *Lazy {
	l := &Lazy{
		uri:       uri,
		src:       src,
		f:         f,
		wc:        wc,
		logger:    zap.NewNop(),
		collector: stats.NewNoop(),
		sem:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lazy) URI() string                 { return l.uri }
func (l *Lazy) Format() format.Format       { return l.f }
func (l *Lazy) World() *format.WorldContext { return l.wc }

// Source returns the byte source.
func (l *Lazy) Source() source.ByteSource { return l.src }

// State returns the current decode state.
func (l *Lazy) State() State {
	return State(l.state.Load())
}

// Clipboard decodes the source on the first successful call and returns
// the cached volume afterwards. ctx bounds both the wait for a running
// decode and opening the source.
func (l *Lazy) Clipboard(ctx context.Context) (*volume.Volume, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()

	if l.v != nil {
		return l.v, nil
	}

	l.state.Store(int32(Resolving))
	start := time.Now()
	v, err := l.decode(ctx)
	l.collector.ObserveHistogram(stats.MetricDecodeSeconds, time.Since(start).Seconds())
	if err != nil {
		l.state.Store(int32(Failed))
		l.collector.IncCounter(stats.MetricDecodeFailures, 1)
		l.logger.Debug("decode failed", zap.String("uri", l.uri), zap.Error(err))
		return nil, fmt.Errorf("decoding %s: %w", l.uri, err)
	}

	l.v = v
	l.state.Store(int32(Resolved))
	l.collector.IncCounter(stats.MetricDecodes, 1)
	l.logger.Debug("decoded clipboard",
		zap.String("uri", l.uri),
		zap.String("format", l.f.Name()),
		zap.Stringer("size", v.Size()),
	)
	return v, nil
}

func (l *Lazy) decode(ctx context.Context) (*volume.Volume, error) {
	rc, err := l.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	// format.Read owns rc from here on.
	return format.Read(l.f, rc, l.wc)
}

package clipio

import (
	"go.uber.org/zap"

	"github.com/blockforge/clipio/internal/config"
	"github.com/blockforge/clipio/internal/discovery"
	"github.com/blockforge/clipio/internal/format"
	"github.com/blockforge/clipio/internal/format/builtin"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/store"
)

// Option configures a Loader.
type Option interface {
	apply(*options)
}

// options holds the loader configuration.
type options struct {
	registry *format.Registry
	format   format.Format
	config   *config.Config
	store    store.Store
	fetcher  *discovery.Fetcher
	stats    stats.Collector
	logger   *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		registry: builtin.Default(),
		config:   config.Default(),
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithRegistry sets the format registry.
// If not set, the shared registry of built-in formats is used.
func WithRegistry(r *format.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = r
	})
}

// WithFormat sets the format used when an input does not name one.
// If not set, the configured default format is looked up by alias.
func WithFormat(f format.Format) Option {
	return optionFunc(func(o *options) {
		o.format = f
	})
}

// WithConfig sets the configuration.
func WithConfig(c *config.Config) Option {
	return optionFunc(func(o *options) {
		o.config = c
	})
}

// WithStore sets an object store that "store:" inputs are resolved
// against. The loader closes it on Close.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithFetcher sets the HTTP fetcher used for remote archives.
func WithFetcher(f *discovery.Fetcher) Option {
	return optionFunc(func(o *options) {
		o.fetcher = f
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// Package memoryclipiofx provides an fx module for a loader backed by an
// in-memory store. Useful for testing.
package memoryclipiofx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/blockforge/clipio"
	"github.com/blockforge/clipio/internal/config"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/stats/logger"
	"github.com/blockforge/clipio/internal/store/memstore"
)

// Module provides an in-memory *clipio.Loader for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memoryclipio",
	fx.Provide(
		newStatsCollector,
		newMemStore,
		newLoader,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("clipio.stats"))
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

// Params holds dependencies for creating the loader.
type Params struct {
	fx.In

	Config    *config.Config `optional:"true"`
	Logger    *zap.Logger
	Collector stats.Collector
	Store     *memstore.Store
	Lifecycle fx.Lifecycle
}

// Result holds the provided loader and store.
type Result struct {
	fx.Out

	Loader *clipio.Loader
	Store  *memstore.Store // Exposed for test setup
}

func newLoader(p Params) (Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}

	loader, err := clipio.New(
		clipio.WithConfig(cfg),
		clipio.WithStore(p.Store),
		clipio.WithStats(p.Collector),
		clipio.WithLogger(p.Logger.Named("clipio")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return loader.Close()
		},
	})

	return Result{
		Loader: loader,
		Store:  p.Store,
	}, nil
}

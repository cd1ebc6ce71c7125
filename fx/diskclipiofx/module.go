// Package diskclipiofx provides an fx module for a loader whose "store:"
// inputs are served from the save directory through an in-memory cache.
package diskclipiofx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/blockforge/clipio"
	"github.com/blockforge/clipio/internal/codec/autocodec"
	"github.com/blockforge/clipio/internal/config"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/stats/logger"
	"github.com/blockforge/clipio/internal/store"
	"github.com/blockforge/clipio/internal/store/cachedstore"
	"github.com/blockforge/clipio/internal/store/cachedstore/cachestrategy/lru"
	"github.com/blockforge/clipio/internal/store/cachedstore/memory"
	"github.com/blockforge/clipio/internal/store/diskstore"
)

// Module provides a disk-backed *clipio.Loader.
// Requires a *zap.Logger and a *config.Config to be provided.
var Module = fx.Module("diskclipio",
	fx.Provide(
		newStatsCollector,
		newLoader,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("clipio.stats"))
}

// Params holds dependencies for creating the loader.
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided loader.
type Result struct {
	fx.Out

	Loader *clipio.Loader
}

func newLoader(p Params) (Result, error) {
	c, err := autocodec.ByName(p.Config.Compression)
	if err != nil {
		return Result{}, fmt.Errorf("compression: %w", err)
	}

	var st store.Store
	st, err = diskstore.New(p.Config.SaveDir, c)
	if err != nil {
		return Result{}, err
	}

	if p.Config.CacheSize > 0 {
		lruStrategy, err := lru.New(p.Config.CacheSize)
		if err != nil {
			return Result{}, err
		}
		st = cachedstore.New(st, memory.New(lruStrategy, p.Collector))
	}

	loader, err := clipio.New(
		clipio.WithConfig(p.Config),
		clipio.WithStore(st),
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

	return Result{Loader: loader}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blockforge/clipio"
	"github.com/blockforge/clipio/internal/codec/autocodec"
	"github.com/blockforge/clipio/internal/discovery"
	"github.com/blockforge/clipio/internal/stats"
	"github.com/blockforge/clipio/internal/stats/logger"
	"github.com/blockforge/clipio/internal/store"
	"github.com/blockforge/clipio/internal/store/cachedstore"
	"github.com/blockforge/clipio/internal/store/cachedstore/cachestrategy/lru"
	"github.com/blockforge/clipio/internal/store/cachedstore/memory"
	"github.com/blockforge/clipio/internal/store/gcsstore"
	"github.com/blockforge/clipio/internal/store/s3store"
)

var loadCmd = &cobra.Command{
	Use:   "load INPUT",
	Short: "Resolve an input to clipboards and decode them",
	Long: `Resolve INPUT the way a player's load command would and decode every
clipboard it names.

INPUT may be a name in the save directory (with or without extension), a
directory, an http(s) URL on a trusted host, "url:<id>" for a published
upload, or "store:<key>" when --store is set.

Examples:
  clipio load castle
  clipio load ../shared/tower --perm ` + clipio.PermLoadOther + `
  clipio load https://assets.example.org/pack.zip
  clipio load store:alice/house --store gs://my-bucket/clips`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

var (
	actorID    string
	actorWorld string
	actorPerms []string
	storeURL   string
	timeout    time.Duration
)

func init() {
	loadCmd.Flags().StringVar(&actorID, "actor", "", "actor UUID (default: a random one)")
	loadCmd.Flags().StringVar(&actorWorld, "world", "world", "world the clipboards are loaded for")
	loadCmd.Flags().StringSliceVar(&actorPerms, "perm", nil, "permissions granted to the actor")
	loadCmd.Flags().StringVar(&storeURL, "store", "", "object store for store: inputs (gs://bucket/prefix or s3://bucket/prefix)")
	loadCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	actor := clipio.User{ID: uuid.New(), World: actorWorld, Permissions: actorPerms}
	if actorID != "" {
		if actor.ID, err = uuid.Parse(actorID); err != nil {
			return fmt.Errorf("invalid --actor: %w", err)
		}
	}

	var collector stats.Collector = stats.NewNoop()
	if verbose {
		collector = logger.New(log)
	}

	opts := []clipio.Option{
		clipio.WithConfig(cfg),
		clipio.WithLogger(log),
		clipio.WithStats(collector),
		clipio.WithFetcher(discovery.NewFetcher(discovery.WithTimeout(timeout))),
	}
	if storeURL != "" {
		st, err := openStore(ctx, storeURL, cfg.Compression, cfg.CacheSize, collector)
		if err != nil {
			return err
		}
		opts = append(opts, clipio.WithStore(st))
	}

	loader, err := clipio.New(opts...)
	if err != nil {
		return err
	}
	defer loader.Close()

	m, err := loader.LoadAll(ctx, actor, args[0])
	switch {
	case errors.Is(err, clipio.ErrNotFound):
		return fmt.Errorf("nothing to load for %q", args[0])
	case errors.Is(err, clipio.ErrUnauthorized):
		return fmt.Errorf("not allowed: %w", err)
	case err != nil && m == nil:
		return err
	case err != nil:
		fmt.Println(warnStyle.Render("some entries were skipped: " + err.Error()))
	}

	var failed int
	for _, h := range m.Holders() {
		s, err := clipio.FromHolder(ctx, h)
		if err != nil {
			failed++
			log.Warn("decode failed", zap.String("uri", h.URI()), zap.Error(err))
			fmt.Printf("%s %s\n", warnStyle.Render("failed"), h.URI())
			continue
		}
		fmt.Printf("%s %s %s\n", okStyle.Render("loaded"), h.URI(), mutedStyle.Render(s.Dimensions.String()))
	}
	fmt.Println(field("clipboards", fmt.Sprintf("%d from %s", m.Len(), m.Origin())))
	if failed > 0 {
		return fmt.Errorf("%d clipboards could not be decoded", failed)
	}
	return nil
}

// openStore opens a gs:// or s3:// location, cached when cacheSize > 0.
func openStore(ctx context.Context, raw, compression string, cacheSize int, collector stats.Collector) (store.Store, error) {
	c, err := autocodec.ByName(compression)
	if err != nil {
		return nil, err
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("invalid store %q: want gs://bucket/prefix or s3://bucket/prefix", raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")

	var st store.Store
	switch scheme {
	case "gs":
		st, err = gcsstore.New(ctx, bucket, c, gcsstore.WithPrefix(prefix))
	case "s3":
		st, err = s3store.New(ctx, bucket, c, s3store.WithPrefix(prefix))
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}

	if cacheSize > 0 {
		strategy, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		st = cachedstore.New(st, memory.New(strategy, collector))
	}
	return st, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/live-market/internal/catalog"
	"github.com/rickgao/live-market/internal/config"
	"github.com/rickgao/live-market/internal/database"
	"github.com/rickgao/live-market/internal/model"
	"github.com/rickgao/live-market/internal/relay"
)

// newLogger builds the slog handler selected by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadCatalog loads seed items from the configured source.
func loadCatalog(ctx context.Context, cfg config.CatalogConfig, populate bool, logger *slog.Logger) ([]model.AuctionItem, error) {
	switch cfg.Source {
	case config.CatalogFile:
		return catalog.FileSource{Path: cfg.Path}.Load(ctx)

	case config.CatalogPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		pool, err := database.Connect(connectCtx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect catalog database: %w", err)
		}
		defer pool.Close()

		src := catalog.PostgresSource{DB: pool, Logger: logger.With("component", "catalog")}
		if populate {
			if _, err := src.Populate(ctx, catalog.BuiltinSeeds); err != nil {
				return nil, err
			}
		}
		return src.Load(ctx)

	default:
		return catalog.BuiltinSource{}.Load(ctx)
	}
}

// connectTimeout bounds each external connection attempt at startup.
const connectTimeout = 10 * time.Second

// connectPublishers connects every configured relay sink concurrently.
func connectPublishers(ctx context.Context, instanceID string, cfg config.RelayConfig, logger *slog.Logger) ([]relay.Publisher, error) {
	var (
		mu         sync.Mutex
		publishers []relay.Publisher
	)
	add := func(p relay.Publisher) {
		mu.Lock()
		publishers = append(publishers, p)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.NATS.URL != "" {
		g.Go(func() error {
			p, err := relay.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, instanceID)
			if err != nil {
				return err
			}
			logger.Info("relay connected to nats", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
			add(p)
			return nil
		})
	}

	if cfg.Redis.Addr != "" {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, connectTimeout)
			defer cancel()

			p, err := relay.NewRedisPublisher(cctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ChannelPrefix)
			if err != nil {
				return err
			}
			logger.Info("relay connected to redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.ChannelPrefix)
			add(p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, p := range publishers {
			_ = p.Close()
		}
		return nil, err
	}
	return publishers, nil
}

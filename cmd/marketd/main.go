package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/live-market/internal/cart"
	"github.com/rickgao/live-market/internal/config"
	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/engine"
	"github.com/rickgao/live-market/internal/relay"
	"github.com/rickgao/live-market/internal/server"
	"github.com/rickgao/live-market/internal/ticker"
	"github.com/rickgao/live-market/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	populate := flag.Bool("populate-db", false, "insert the builtin items into the postgres catalog before starting")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadAndValidate(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting marketd",
		"version", version.String(),
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, *populate, logger); err != nil {
		logger.Error("marketd failed", "err", err)
		os.Exit(1)
	}

	logger.Info("marketd stopped")
}

func run(ctx context.Context, cfg *config.MarketConfig, populate bool, logger *slog.Logger) error {
	// Load seed items
	items, err := loadCatalog(ctx, cfg.Catalog, populate, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	logger.Info("catalog loaded", "source", cfg.Catalog.Source, "items", len(items))

	// Build engine
	eng, err := engine.New(engineConfig(cfg), items, engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	// Connect relay publishers
	publishers, err := connectPublishers(ctx, cfg.Instance.ID, cfg.Relay, logger)
	if err != nil {
		return fmt.Errorf("connect relay: %w", err)
	}

	var rl *relay.Relay
	if len(publishers) > 0 {
		sub := eng.Subscribe(dispatch.WithQueueSize(cfg.Dispatcher.QueueSize * 4))
		rl = relay.New(relay.DefaultConfig(), sub, publishers, logger.With("component", "relay"))
		if err := rl.Start(ctx); err != nil {
			return fmt.Errorf("start relay: %w", err)
		}
	}

	sessions, err := cart.NewSessions(cart.Config{MaxSessions: cfg.Carts.MaxSessions}, logger.With("component", "carts"))
	if err != nil {
		stopAll(cfg.Server.ShutdownTimeout, logger, eng, nil, rl)
		return fmt.Errorf("create cart sessions: %w", err)
	}

	var serverOpts []server.Option
	if rl != nil {
		serverOpts = append(serverOpts, server.WithStats("relay", func() any { return rl.Stats() }))
	}
	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		PingInterval: cfg.Server.PingInterval,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, eng, sessions, logger.With("component", "server"), serverOpts...)

	if err := eng.Start(ctx); err != nil {
		stopAll(cfg.Server.ShutdownTimeout, logger, eng, nil, rl)
		return fmt.Errorf("start engine: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		stopAll(cfg.Server.ShutdownTimeout, logger, eng, nil, rl)
		return fmt.Errorf("start server: %w", err)
	}

	logger.Info("marketd running",
		"instance_id", cfg.Instance.ID,
		"items_url", fmt.Sprintf("http://localhost:%d/api/v1/items", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	stopAll(cfg.Server.ShutdownTimeout, logger, eng, srv, rl)

	return nil
}

// stopAll shuts components down in order. srv and rl may be nil.
func stopAll(timeout time.Duration, logger *slog.Logger, eng *engine.Engine, srv *server.Server, rl *relay.Relay) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Engine first: later bids fail fast and every stream ends.
	if err := eng.Stop(ctx); err != nil {
		logger.Error("engine shutdown failed", "err", err)
	}
	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}
	if rl != nil {
		if err := rl.Stop(ctx); err != nil {
			logger.Error("relay shutdown failed", "err", err)
		}
	}
}

func engineConfig(cfg *config.MarketConfig) engine.Config {
	return engine.Config{
		Ticker: ticker.Config{
			Interval:        cfg.Engine.TickInterval,
			PriceDeltaBound: cfg.Engine.PriceDeltaBound,
			BidWalkBound:    cfg.Engine.BidWalkBound,
			Concurrency:     cfg.Engine.TickConcurrency,
		},
		Dispatcher: dispatch.Config{QueueSize: cfg.Dispatcher.QueueSize},
		Seed:       cfg.Engine.Seed,
	}
}

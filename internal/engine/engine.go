package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/bidding"
	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/model"
	"github.com/rickgao/live-market/internal/store"
	"github.com/rickgao/live-market/internal/ticker"
)

// Config holds engine configuration.
type Config struct {
	Ticker     ticker.Config
	Dispatcher dispatch.Config
	Seed       uint64 // Ticker random seed; 0 picks a random one
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Ticker:     ticker.DefaultConfig(),
		Dispatcher: dispatch.DefaultConfig(),
	}
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	rng    ticker.RandSource
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the time source used by the ticker, the bid engine and views.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRandSource overrides the seeded ticker random source.
func WithRandSource(rng ticker.RandSource) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// Engine is the live market.
type Engine struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	ticker     *ticker.Ticker
	bids       *bidding.Engine
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	started bool
	stopped bool
}

// New builds an engine over the given seed items.
func New(cfg Config, items []model.AuctionItem, opts ...Option) (*Engine, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		o.rng = rand.New(rand.NewPCG(seed, seed))
		o.logger.Debug("ticker seeded", "seed", seed)
	}

	st, err := store.New(items)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	d := dispatch.New(cfg.Dispatcher, o.logger.With("component", "dispatcher"))

	return &Engine{
		store:      st,
		dispatcher: d,
		ticker: ticker.New(cfg.Ticker, st, d, o.rng, o.logger.With("component", "ticker"),
			ticker.WithClock(o.now)),
		bids: bidding.New(st, d, o.logger.With("component", "bidding"),
			bidding.WithClock(o.now)),
		logger: o.logger,
		now:    o.now,
	}, nil
}

// Start begins ticking.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return model.ErrEngineStopped
	}
	if e.started {
		return nil
	}

	if err := e.ticker.Start(ctx); err != nil {
		return fmt.Errorf("start ticker: %w", err)
	}
	e.started = true

	e.logger.Info("market engine started", "items", e.store.Len())
	return nil
}

// Stop rejects further bids, stops the ticker and closes every subscription.
// It is safe to call more than once.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil
	}
	e.stopped = true
	e.bids.Halt()

	err := e.ticker.Stop(ctx)
	e.dispatcher.Close()

	if err != nil {
		return fmt.Errorf("stop ticker: %w", err)
	}

	e.logger.Info("market engine stopped")
	return nil
}

// ListItems returns every item in insertion order.
func (e *Engine) ListItems() []model.AuctionItemView {
	now := e.now()
	items := e.store.List()

	views := make([]model.AuctionItemView, len(items))
	for i, item := range items {
		views[i] = item.View(now)
	}
	return views
}

// Item returns one item.
func (e *Engine) Item(id string) (model.AuctionItemView, error) {
	item, err := e.store.Get(id)
	if err != nil {
		return model.AuctionItemView{}, err
	}
	return item.View(e.now()), nil
}

// SubmitBid places a bid on an item.
func (e *Engine) SubmitBid(ctx context.Context, itemID string, price decimal.Decimal) (bidding.Result, error) {
	return e.bids.Submit(ctx, itemID, price)
}

// Subscribe streams item events. Closing the engine closes the subscription.
func (e *Engine) Subscribe(opts ...dispatch.SubscribeOption) *dispatch.Subscription {
	return e.dispatcher.Subscribe(opts...)
}

// Tick runs one ticker pass at the given time, outside the schedule.
func (e *Engine) Tick(at time.Time) ticker.Result {
	return e.ticker.TickOnce(at)
}

// Stats returns statistics for every component.
func (e *Engine) Stats() Stats {
	return Stats{
		Items:      e.store.Len(),
		Ticker:     e.ticker.Stats(),
		Bids:       e.bids.Stats(),
		Dispatcher: e.dispatcher.Stats(),
	}
}

// Stats aggregates component statistics.
type Stats struct {
	Items      int            `json:"items"`
	Ticker     ticker.Stats   `json:"ticker"`
	Bids       bidding.Stats  `json:"bids"`
	Dispatcher dispatch.Stats `json:"dispatcher"`
}

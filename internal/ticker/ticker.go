package ticker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/model"
	"github.com/rickgao/live-market/internal/store"
)

// RandSource provides the random draws. *rand.Rand from math/rand/v2
// satisfies it.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

// ItemStore is the subset of the store the ticker needs.
type ItemStore interface {
	List() []model.AuctionItem
	Apply(id string, fn store.MutateFunc) (model.AuctionItem, store.Change, error)
}

// Config holds ticker configuration.
type Config struct {
	Interval        time.Duration   // Tick period (default: 5s)
	PriceDeltaBound decimal.Decimal // Max absolute price move per tick (default: 1.5)
	BidWalkBound    int             // Max active bid increase per tick (default: 1)
	Concurrency     int             // Max items updated in parallel (default: 16)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		PriceDeltaBound: decimal.RequireFromString("1.5"),
		BidWalkBound:    1,
		Concurrency:     16,
	}
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithClock sets the time source used for tick timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Ticker) {
		t.now = now
	}
}

// errAlreadyClosed marks items the ticker leaves alone.
var errAlreadyClosed = errors.New("auction already closed")

// Ticker periodically perturbs item prices.
type Ticker struct {
	cfg       Config
	items     ItemStore
	publisher dispatch.Publisher
	logger    *slog.Logger
	now       func() time.Time

	rngMu sync.Mutex
	rng   RandSource

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	ticks    atomic.Int64
	updated  atomic.Int64
	closed   atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// New creates a new Ticker.
func New(cfg Config, items ItemStore, publisher dispatch.Publisher, rng RandSource, logger *slog.Logger, opts ...Option) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BidWalkBound < 0 {
		cfg.BidWalkBound = 0
	}
	cfg.PriceDeltaBound = cfg.PriceDeltaBound.Abs()

	t := &Ticker{
		cfg:       cfg,
		items:     items,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		rng:       rng,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the tick loop.
func (t *Ticker) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.wg.Add(1)
	go t.run()

	t.logger.Info("market ticker started",
		"interval", t.cfg.Interval,
		"price_delta_bound", t.cfg.PriceDeltaBound,
		"bid_walk_bound", t.cfg.BidWalkBound,
	)

	return nil
}

// Stop cancels the timer and waits for an in-flight tick to finish.
func (t *Ticker) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("market ticker stopped", "ticks", t.ticks.Load())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main tick loop.
func (t *Ticker) run() {
	defer t.wg.Done()

	timer := time.NewTicker(t.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-timer.C:
			t.TickOnce(t.now())
		}
	}
}

// draw is the pre-computed randomness for one item in one tick.
type draw struct {
	id    string
	delta decimal.Decimal
	step  int
}

// TickOnce runs one pass over all items at the given time.
func (t *Ticker) TickOnce(at time.Time) Result {
	start := time.Now()
	draws := t.drawAll(at)

	var res Result
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(t.cfg.Concurrency)

	for _, d := range draws {
		g.Go(func() error {
			outcome := t.tickItem(d, at)
			mu.Lock()
			res.add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // tickItem never returns an error

	t.ticks.Add(1)

	t.logger.Debug("tick complete",
		"items", len(draws),
		"updated", res.Updated,
		"closed", res.Closed,
		"failed", res.Failed,
		"duration", time.Since(start),
	)

	return res
}

// drawAll takes every random draw for this tick in item order.
func (t *Ticker) drawAll(at time.Time) []draw {
	items := t.items.List()
	draws := make([]draw, 0, len(items))

	t.rngMu.Lock()
	defer t.rngMu.Unlock()

	for _, item := range items {
		if item.IsClosed(at) {
			// Expired or closed items consume no draws.
			draws = append(draws, draw{id: item.ID})
			continue
		}
		draws = append(draws, draw{
			id:    item.ID,
			delta: t.priceDelta(),
			step:  t.bidStep(),
		})
	}
	return draws
}

// priceDelta returns a uniform draw in [-bound, +bound], two decimal places.
func (t *Ticker) priceDelta() decimal.Decimal {
	f := t.rng.Float64()*2 - 1
	return decimal.NewFromFloat(f).Mul(t.cfg.PriceDeltaBound).Round(2)
}

// bidStep returns a uniform draw in [0, BidWalkBound].
func (t *Ticker) bidStep() int {
	if t.cfg.BidWalkBound == 0 {
		return 0
	}
	return t.rng.IntN(t.cfg.BidWalkBound + 1)
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeClosed
	outcomeSkipped
	outcomeFailed
)

// tickItem applies one item's update and publishes the result.
func (t *Ticker) tickItem(d draw, at time.Time) outcome {
	closing := false

	after, change, err := t.items.Apply(d.id, func(item *model.AuctionItem) error {
		if item.Status == model.StatusClosed {
			return errAlreadyClosed
		}
		if item.IsClosed(at) {
			item.Status = model.StatusClosed
			item.LastUpdatedAt = at
			closing = true
			return nil
		}

		candidate := item.CurrentPrice.Add(d.delta)
		if floor := item.PriceFloor(); candidate.LessThan(floor) {
			candidate = floor
		}
		item.MovePrice(candidate)
		item.ActiveBids += d.step
		item.LastUpdatedAt = at
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyClosed):
		t.skipped.Add(1)
		return outcomeSkipped
	case err != nil:
		t.logger.Warn("tick update failed",
			"item_id", d.id,
			"err", err,
		)
		t.failures.Add(1)
		return outcomeFailed
	}

	if closing {
		t.logger.Info("auction closed", "item_id", after.ID)
		t.closed.Add(1)
		t.publish(model.NewAuctionClosed(after))
		return outcomeClosed
	}

	t.updated.Add(1)
	t.publish(model.NewPriceTicked(change.Before, after))
	return outcomeUpdated
}

func (t *Ticker) publish(event model.Event) {
	if t.publisher != nil {
		t.publisher.Publish(event)
	}
}

// Result summarizes one tick.
type Result struct {
	Updated int
	Closed  int
	Skipped int
	Failed  int
}

func (r *Result) add(o outcome) {
	switch o {
	case outcomeUpdated:
		r.Updated++
	case outcomeClosed:
		r.Closed++
	case outcomeSkipped:
		r.Skipped++
	case outcomeFailed:
		r.Failed++
	}
}

// Stats returns cumulative ticker statistics.
func (t *Ticker) Stats() Stats {
	return Stats{
		Ticks:    t.ticks.Load(),
		Updated:  t.updated.Load(),
		Closed:   t.closed.Load(),
		Skipped:  t.skipped.Load(),
		Failures: t.failures.Load(),
	}
}

// Stats contains cumulative ticker statistics.
type Stats struct {
	Ticks    int64 `json:"ticks"`
	Updated  int64 `json:"updated"`
	Closed   int64 `json:"closed"`
	Skipped  int64 `json:"skipped"`
	Failures int64 `json:"failures"`
}

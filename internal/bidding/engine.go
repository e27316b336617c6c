package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/dispatch"
	"github.com/rickgao/live-market/internal/model"
	"github.com/rickgao/live-market/internal/store"
)

// ItemStore is the subset of the store the bid engine needs.
type ItemStore interface {
	Apply(id string, fn store.MutateFunc) (model.AuctionItem, store.Change, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used to stamp bids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Result describes an accepted bid.
type Result struct {
	ItemID        string          `json:"item_id"`
	Price         decimal.Decimal `json:"price"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	Trend         model.Trend     `json:"trend"`
	PercentChange decimal.Decimal `json:"percent_change"`
	ActiveBids    int             `json:"active_bids"`
	Version       uint64          `json:"version"`
	AcceptedAt    time.Time       `json:"accepted_at"`
}

// Engine validates and applies bids.
type Engine struct {
	items     ItemStore
	publisher dispatch.Publisher
	logger    *slog.Logger
	now       func() time.Time

	halted atomic.Bool

	// Stats
	accepted         atomic.Int64
	rejectedNotFound atomic.Int64
	rejectedTooLow   atomic.Int64
	rejectedClosed   atomic.Int64
	rejectedStopped  atomic.Int64
	failures         atomic.Int64
}

// New creates a new bid Engine.
func New(items ItemStore, publisher dispatch.Publisher, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		items:     items,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Halt makes every later Submit fail with ErrEngineStopped.
func (e *Engine) Halt() {
	e.halted.Store(true)
}

// Submit places a bid of price on itemID.
//
// Rejections are returned as *model.BidError. Any other error means the
// update broke a store invariant and nothing was applied.
//
// Events are published after the item lock is released. If a tick commits a
// newer version first, the dispatcher discards this bid's event as stale; the
// returned Result is still authoritative.
func (e *Engine) Submit(ctx context.Context, itemID string, price decimal.Decimal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	bid := model.Bid{ItemID: itemID, Price: price, SubmittedAt: e.now()}

	if e.halted.Load() {
		e.rejectedStopped.Add(1)
		return Result{}, &model.BidError{ItemID: itemID, Reason: model.ReasonEngineStopped, Price: price}
	}

	after, change, err := e.items.Apply(itemID, func(item *model.AuctionItem) error {
		if err := check(*item, bid); err != nil {
			return err
		}
		item.MovePrice(bid.Price)
		item.ActiveBids++
		item.LastUpdatedAt = bid.SubmittedAt
		return nil
	})

	if err != nil {
		return Result{}, e.reject(bid, after.Version, err)
	}

	e.accepted.Add(1)
	e.publish(model.NewBidAccepted(after))

	e.logger.Debug("bid accepted",
		"item_id", itemID,
		"price", price,
		"active_bids", after.ActiveBids,
	)

	return Result{
		ItemID:        after.ID,
		Price:         after.CurrentPrice,
		PreviousPrice: change.Before.CurrentPrice,
		Trend:         after.Trend,
		PercentChange: after.PercentChange,
		ActiveBids:    after.ActiveBids,
		Version:       after.Version,
		AcceptedAt:    bid.SubmittedAt,
	}, nil
}

// check runs the bid rules against the item as it stands inside the update.
func check(item model.AuctionItem, bid model.Bid) error {
	if item.IsClosed(bid.SubmittedAt) {
		return &model.BidError{ItemID: item.ID, Reason: model.ReasonClosed, Price: bid.Price}
	}
	if bid.Price.LessThan(item.MinimumBid) || bid.Price.IsNegative() {
		return &model.BidError{
			ItemID:     item.ID,
			Reason:     model.ReasonTooLow,
			Price:      bid.Price,
			MinimumBid: item.MinimumBid,
		}
	}
	return nil
}

// reject classifies err, counts it and publishes bid_rejected.
func (e *Engine) reject(bid model.Bid, seq uint64, err error) error {
	var be *model.BidError
	switch {
	case errors.As(err, &be):
	case errors.Is(err, model.ErrNotFound):
		be = &model.BidError{ItemID: bid.ItemID, Reason: model.ReasonNotFound, Price: bid.Price}
	default:
		e.failures.Add(1)
		e.logger.Error("bid update failed",
			"item_id", bid.ItemID,
			"price", bid.Price,
			"err", err,
		)
		return fmt.Errorf("apply bid on item %s: %w", bid.ItemID, err)
	}

	switch be.Reason {
	case model.ReasonNotFound:
		e.rejectedNotFound.Add(1)
	case model.ReasonTooLow:
		e.rejectedTooLow.Add(1)
	case model.ReasonClosed:
		e.rejectedClosed.Add(1)
	}

	e.logger.Debug("bid rejected",
		"item_id", bid.ItemID,
		"price", bid.Price,
		"reason", be.Reason,
	)

	e.publish(model.NewBidRejected(bid.ItemID, seq, be.Reason, be.Error(), bid.SubmittedAt))
	return be
}

func (e *Engine) publish(event model.Event) {
	if e.publisher != nil {
		e.publisher.Publish(event)
	}
}

// Stats returns cumulative bid statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Accepted: e.accepted.Load(),
		Rejected: map[model.RejectReason]int64{
			model.ReasonNotFound:      e.rejectedNotFound.Load(),
			model.ReasonTooLow:        e.rejectedTooLow.Load(),
			model.ReasonClosed:        e.rejectedClosed.Load(),
			model.ReasonEngineStopped: e.rejectedStopped.Load(),
		},
		Failures: e.failures.Load(),
	}
}

// Stats contains cumulative bid statistics.
type Stats struct {
	Accepted int64                        `json:"accepted"`
	Rejected map[model.RejectReason]int64 `json:"rejected"`
	Failures int64                        `json:"failures"`
}

package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/live-market/internal/model"
)

// Publisher sends an encoded event to one external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event model.Event, payload []byte) error
	Close() error
}

// EventSource is a stream of events. *dispatch.Subscription satisfies it.
type EventSource interface {
	Receive(ctx context.Context) (model.Event, bool)
	Close()
}

// Config holds relay configuration.
type Config struct {
	PublishTimeout time.Duration // Per-publisher deadline for one event (default: 2s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{PublishTimeout: 2 * time.Second}
}

// Relay forwards events from a source to publishers.
type Relay struct {
	cfg        Config
	source     EventSource
	publishers []Publisher
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	forwarded atomic.Int64
	failures  atomic.Int64
}

// New creates a new Relay.
func New(cfg Config, source EventSource, publishers []Publisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &Relay{
		cfg:        cfg,
		source:     source,
		publishers: publishers,
		logger:     logger,
	}
}

// Start begins forwarding.
func (r *Relay) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	names := make([]string, len(r.publishers))
	for i, p := range r.publishers {
		names[i] = p.Name()
	}
	r.logger.Info("relay started", "publishers", names)
	return nil
}

// Stop closes the source, waits for the loop to exit and closes every
// publisher.
func (r *Relay) Stop(ctx context.Context) error {
	r.source.Close()
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, p := range r.publishers {
		if err := p.Close(); err != nil {
			r.logger.Warn("close publisher", "publisher", p.Name(), "err", err)
		}
	}

	r.logger.Info("relay stopped",
		"forwarded", r.forwarded.Load(),
		"failures", r.failures.Load(),
	)
	return nil
}

func (r *Relay) run() {
	defer r.wg.Done()

	for {
		event, ok := r.source.Receive(r.ctx)
		if !ok {
			return
		}
		r.forward(event)
	}
}

// forward encodes event once and sends it to every publisher.
func (r *Relay) forward(event model.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.failures.Add(1)
		r.logger.Error("encode event", "event_id", event.ID, "err", err)
		return
	}

	for _, p := range r.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PublishTimeout)
		err := p.Publish(ctx, event, payload)
		cancel()

		if err != nil {
			r.failures.Add(1)
			r.logger.Warn("relay publish failed",
				"publisher", p.Name(),
				"item_id", event.ItemID,
				"type", event.Type,
				"err", err,
			)
			continue
		}
		r.forwarded.Add(1)
	}
}

// Stats returns relay statistics.
func (r *Relay) Stats() Stats {
	return Stats{
		Forwarded: r.forwarded.Load(),
		Failures:  r.failures.Load(),
	}
}

// Stats contains relay statistics.
type Stats struct {
	Forwarded int64 `json:"forwarded"`
	Failures  int64 `json:"failures"`
}

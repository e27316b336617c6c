package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/live-market/internal/model"
)

// Config holds dispatcher configuration.
type Config struct {
	QueueSize int // Per-subscriber queue capacity (default: 256)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize: 256,
	}
}

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(event model.Event)
}

// Dispatcher fans events out to subscribers.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[uuid.UUID]*Subscription
	lastSeq map[string]uint64 // Highest Seq published per item
	closed  bool

	// Stats
	published int64
	stale     int64
}

// New creates a new Dispatcher.
func New(cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Dispatcher{
		cfg:     cfg,
		logger:  logger,
		subs:    make(map[uuid.UUID]*Subscription),
		lastSeq: make(map[string]uint64),
	}
}

// SubscribeOption configures a Subscription.
type SubscribeOption func(*Subscription)

// ForItems restricts a subscription to the given item ids.
func ForItems(ids ...string) SubscribeOption {
	return func(s *Subscription) {
		if len(ids) == 0 {
			return
		}
		s.items = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			s.items[id] = struct{}{}
		}
	}
}

// WithQueueSize overrides the dispatcher's default queue capacity.
func WithQueueSize(n int) SubscribeOption {
	return func(s *Subscription) {
		s.queueSize = n
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed dispatcher
// returns an already-closed subscription.
func (d *Dispatcher) Subscribe(opts ...SubscribeOption) *Subscription {
	s := &Subscription{
		id:        uuid.New(),
		dispatch:  d,
		queueSize: d.cfg.QueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = NewQueue[model.Event](s.queueSize)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		s.queue.Close()
		return s
	}
	d.subs[s.id] = s

	d.logger.Debug("subscriber added", "subscriber", s.id, "queue_size", s.queueSize)
	return s
}

// Publish enqueues event for every matching subscriber. It never blocks on
// slow subscribers: full queues drop their oldest event.
//
// Events whose Seq is older than one already published for the same item are
// discarded so no subscriber sees an item move backwards.
func (d *Dispatcher) Publish(event model.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if event.Seq > 0 {
		if event.Seq < d.lastSeq[event.ItemID] {
			d.stale++
			d.logger.Debug("dropping stale event",
				"item_id", event.ItemID,
				"type", event.Type,
				"seq", event.Seq,
				"last_seq", d.lastSeq[event.ItemID],
			)
			return
		}
		d.lastSeq[event.ItemID] = event.Seq
	}

	for _, s := range d.subs {
		if s.matches(event) {
			s.queue.Push(event)
		}
	}
	d.published++
}

// Close closes every subscription. Queued events can still be drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for id, s := range d.subs {
		s.queue.Close()
		delete(d.subs, id)
	}
}

// Stats returns dispatcher statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := Stats{
		Subscribers: len(d.subs),
		Published:   d.published,
		Stale:       d.stale,
	}
	for _, s := range d.subs {
		stats.Dropped += s.queue.Stats().Dropped
	}
	return stats
}

// Stats contains dispatcher statistics.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Stale       int64 `json:"stale"`
	Dropped     int64 `json:"dropped"` // Across current subscribers
}

func (d *Dispatcher) remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

// Subscription is one subscriber's view of the event stream.
type Subscription struct {
	id        uuid.UUID
	dispatch  *Dispatcher
	items     map[string]struct{} // nil = all items
	queueSize int
	queue     *Queue[model.Event]
	closeOnce sync.Once
}

// ID returns the subscription id.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Receive blocks until an event is available. It returns false once the
// subscription is closed and drained, or ctx is done.
func (s *Subscription) Receive(ctx context.Context) (model.Event, bool) {
	return s.queue.Pop(ctx)
}

// TryReceive returns the next event without blocking.
func (s *Subscription) TryReceive() (model.Event, bool) {
	return s.queue.TryPop()
}

// Close unsubscribes. Queued events can still be drained.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.dispatch.remove(s.id)
		s.queue.Close()
	})
}

// Stats returns the subscription's queue statistics.
func (s *Subscription) Stats() QueueStats {
	return s.queue.Stats()
}

func (s *Subscription) matches(event model.Event) bool {
	if s.items == nil {
		return true
	}
	_, ok := s.items[event.ItemID]
	return ok
}

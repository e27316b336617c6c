package dispatch

import (
	"context"
	"sync"
)

// Queue is a bounded, thread-safe FIFO. When full, Push discards the oldest
// item to make room, so producers never block.
type Queue[T any] struct {
	mu       sync.Mutex
	notify   chan struct{} // signalled on push and close
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed int64
	totalPopped int64
	dropped     int64
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		notify:   make(chan struct{}, 1),
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item, dropping the oldest one if the queue is full.
// Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	if q.count == q.capacity {
		// Drop oldest.
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.count--
		q.dropped++
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalPushed++
	q.signalLocked()
	q.mu.Unlock()

	return true
}

// Pop removes and returns an item, blocking until one is available, the
// queue is closed and drained, or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, bool) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			item := q.popLocked()
			if q.count > 0 {
				// Another waiter may be parked on notify.
				q.signalLocked()
			}
			q.mu.Unlock()
			return item, true
		}
		if q.closed {
			q.mu.Unlock()
			var zero T
			return zero, false
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// TryPop removes and returns an item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Close closes the queue. Remaining items can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.notify) // wakes every parked Pop
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:       q.count,
		Capacity:    q.capacity,
		TotalPushed: q.totalPushed,
		TotalPopped: q.totalPopped,
		Dropped:     q.dropped,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	TotalPopped int64
	Dropped     int64
}

// popLocked removes the head item. Must be called with lock held.
func (q *Queue[T]) popLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalPopped++
	return item
}

// signalLocked wakes one waiter without blocking. Must be called with lock held.
func (q *Queue[T]) signalLocked() {
	if q.closed {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

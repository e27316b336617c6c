package store

import (
	"fmt"
	"sync"

	"github.com/rickgao/live-market/internal/model"
)

// MutateFunc edits a working copy of an item. Returning an error aborts the
// update and leaves the stored item unchanged.
type MutateFunc func(item *model.AuctionItem) error

// Change describes a committed update.
type Change struct {
	Before model.AuctionItem
	After  model.AuctionItem
}

// entry guards a single item.
type entry struct {
	mu   sync.Mutex
	item model.AuctionItem
}

// Store is the single source of truth for all auction items.
type Store struct {
	// The item set is fixed at construction; entries are never added or
	// removed while the engine runs, so order and index need no lock.
	order []*entry
	index map[string]*entry
}

// New creates a store seeded with items. Items keep the given order.
func New(items []model.AuctionItem) (*Store, error) {
	s := &Store{
		order: make([]*entry, 0, len(items)),
		index: make(map[string]*entry, len(items)),
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("seed item: %w", err)
		}
		if _, dup := s.index[item.ID]; dup {
			return nil, fmt.Errorf("seed item %s: duplicate id", item.ID)
		}
		e := &entry{item: item}
		s.order = append(s.order, e)
		s.index[item.ID] = e
	}

	return s, nil
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (model.AuctionItem, error) {
	e, ok := s.index[id]
	if !ok {
		return model.AuctionItem{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.item, nil
}

// List returns copies of all items in insertion order.
func (s *Store) List() []model.AuctionItem {
	result := make([]model.AuctionItem, 0, len(s.order))
	for _, e := range s.order {
		e.mu.Lock()
		result = append(result, e.item)
		e.mu.Unlock()
	}
	return result
}

// IDs returns all item ids in insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.order))
	for _, e := range s.order {
		// ID is immutable, no lock needed.
		ids = append(ids, e.item.ID)
	}
	return ids
}

// Len returns the number of items.
func (s *Store) Len() int {
	return len(s.order)
}

// Apply runs fn against a copy of the item while holding that item's lock,
// checks the result against the previous state and commits it.
//
// Errors returned by fn are passed through unchanged. Results that would
// break an invariant yield an *model.InvariantError. In both cases nothing
// is committed.
func (s *Store) Apply(id string, fn MutateFunc) (model.AuctionItem, Change, error) {
	e, ok := s.index[id]
	if !ok {
		return model.AuctionItem{}, Change{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.item
	working := before

	if err := fn(&working); err != nil {
		return before, Change{}, err
	}

	if err := checkInvariants(before, working); err != nil {
		return before, Change{}, err
	}

	working.Version = before.Version + 1
	e.item = working

	return working, Change{Before: before, After: working}, nil
}

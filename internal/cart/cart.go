package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/model"
)

// Cart accumulates confirmed item snapshots.
type Cart struct {
	mu      sync.Mutex
	entries []model.CartEntry
	now     func() time.Time
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{now: time.Now}
}

// Add appends a snapshot of item. It always succeeds.
func (c *Cart) Add(item model.AuctionItemView) model.CartEntry {
	entry := model.CartEntry{
		EntryID: uuid.New(),
		Item:    item,
		AddedAt: c.now(),
	}

	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()

	return entry
}

// Entries returns a copy of the entries in the order they were added.
func (c *Cart) Entries() []model.CartEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Total sums the snapshot prices.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Item.CurrentPrice)
	}
	return total
}

// Summary is the cart as shown to a client.
type Summary struct {
	Entries []model.CartEntry `json:"entries"`
	Count   int               `json:"count"`
	Total   decimal.Decimal   `json:"total"`
}

// Summary returns entries, count and total taken under one lock.
func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartEntry, len(c.entries))
	copy(out, c.entries)

	total := decimal.Zero
	for _, e := range out {
		total = total.Add(e.Item.CurrentPrice)
	}

	return Summary{Entries: out, Count: len(out), Total: total}
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	EventPriceTicked   = "price_ticked"
	EventBidAccepted   = "bid_accepted"
	EventBidRejected   = "bid_rejected"
	EventAuctionClosed = "auction_closed"
)

// Event is an outcome notification fanned out to subscribers.
// Type field indicates which fields are set.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   string    `json:"type"`
	ItemID string    `json:"item_id"`
	Seq    uint64    `json:"seq"` // Item version at emission; 0 when the item is unknown
	At     time.Time `json:"at"`

	// price_ticked
	OldPrice      decimal.Decimal `json:"old_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Trend         Trend           `json:"trend,omitempty"`
	PercentChange decimal.Decimal `json:"percent_change"`

	// bid_accepted
	Price decimal.Decimal `json:"price"`

	// price_ticked, bid_accepted
	ActiveBids int `json:"active_bids,omitempty"`

	// bid_rejected
	Reason  RejectReason `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
}

// NewPriceTicked builds a price_ticked event from a committed tick.
func NewPriceTicked(before, after AuctionItem) Event {
	return Event{
		ID:            uuid.New(),
		Type:          EventPriceTicked,
		ItemID:        after.ID,
		Seq:           after.Version,
		At:            after.LastUpdatedAt,
		OldPrice:      before.CurrentPrice,
		NewPrice:      after.CurrentPrice,
		Trend:         after.Trend,
		PercentChange: after.PercentChange,
		ActiveBids:    after.ActiveBids,
	}
}

// NewBidAccepted builds a bid_accepted event from a committed bid.
func NewBidAccepted(after AuctionItem) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventBidAccepted,
		ItemID:     after.ID,
		Seq:        after.Version,
		At:         after.LastUpdatedAt,
		Price:      after.CurrentPrice,
		ActiveBids: after.ActiveBids,
	}
}

// NewBidRejected builds a bid_rejected event. seq is the item version the
// bid was checked against.
func NewBidRejected(itemID string, seq uint64, reason RejectReason, message string, at time.Time) Event {
	return Event{
		ID:      uuid.New(),
		Type:    EventBidRejected,
		ItemID:  itemID,
		Seq:     seq,
		At:      at,
		Reason:  reason,
		Message: message,
	}
}

// NewAuctionClosed builds an auction_closed event.
func NewAuctionClosed(after AuctionItem) Event {
	return Event{
		ID:     uuid.New(),
		Type:   EventAuctionClosed,
		ItemID: after.ID,
		Seq:    after.Version,
		At:     after.LastUpdatedAt,
	}
}

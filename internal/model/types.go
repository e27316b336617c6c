package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceFloorOffset is how far below MinimumBid the ticker may drift a price.
var PriceFloorOffset = decimal.NewFromInt(2)

// MaxRating is the upper bound of an item's quality rating.
var MaxRating = decimal.NewFromInt(5)

// Trend is the direction of the last price move.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Status is the auction lifecycle state of an item.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed" // terminal
)

// -----------------------------------------------------------------------------
// Live Market Types
// -----------------------------------------------------------------------------

// AuctionItem is a tradable item in the live market.
type AuctionItem struct {
	ID            string // Primary key (e.g., "1")
	Name          string // Display name
	Supplier      string // Supplier display name
	Location      string // Location label (e.g., "1.2 km away")
	Quality       string // Quality label (e.g., "Premium A+")
	Certification string // Certification label (e.g., "Organic")

	// Pricing
	CurrentPrice  decimal.Decimal
	PreviousPrice decimal.Decimal
	Trend         Trend
	PercentChange decimal.Decimal // Previous → current, one decimal place
	MinimumBid    decimal.Decimal // Immutable after creation

	Stock      int             // Informational, never decremented by bids
	Rating     decimal.Decimal // 0-5
	ActiveBids int             // Non-decreasing

	Status        Status
	ClosesAt      time.Time // Auction end; timeRemaining = ClosesAt - now
	LastUpdatedAt time.Time
	Version       uint64 // Incremented by the store on every committed update
}

// PriceFloor returns the lowest price the item may hold: MinimumBid - 2,
// never below zero.
func (a AuctionItem) PriceFloor() decimal.Decimal {
	return decimal.Max(decimal.Zero, a.MinimumBid.Sub(PriceFloorOffset))
}

// TimeRemaining returns the time left before the auction closes, never negative.
func (a AuctionItem) TimeRemaining(now time.Time) time.Duration {
	if a.Status == StatusClosed {
		return 0
	}
	d := a.ClosesAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsClosed reports whether the item rejects bids at now.
func (a AuctionItem) IsClosed(now time.Time) bool {
	return a.Status == StatusClosed || a.TimeRemaining(now) <= 0
}

// MovePrice sets a new current price, shifting the old one into PreviousPrice
// and recomputing Trend and PercentChange. An unchanged price keeps the trend.
func (a *AuctionItem) MovePrice(newPrice decimal.Decimal) {
	old := a.CurrentPrice
	a.PreviousPrice = old
	a.CurrentPrice = newPrice

	switch newPrice.Cmp(old) {
	case 1:
		a.Trend = TrendUp
	case -1:
		a.Trend = TrendDown
	}

	if old.IsZero() {
		a.PercentChange = decimal.Zero
		return
	}
	a.PercentChange = newPrice.Sub(old).Div(old).Mul(decimal.NewFromInt(100)).Round(1)
}

// Validate checks a freshly seeded item against the data model invariants.
func (a AuctionItem) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("item id is required")
	case a.Name == "":
		return fmt.Errorf("item %s: name is required", a.ID)
	case a.MinimumBid.IsNegative():
		return fmt.Errorf("item %s: minimum bid %s is negative", a.ID, a.MinimumBid)
	case a.CurrentPrice.IsNegative():
		return fmt.Errorf("item %s: current price %s is negative", a.ID, a.CurrentPrice)
	case a.CurrentPrice.LessThan(a.PriceFloor()):
		return fmt.Errorf("item %s: current price %s below floor %s", a.ID, a.CurrentPrice, a.PriceFloor())
	case a.Stock < 0:
		return fmt.Errorf("item %s: stock %d is negative", a.ID, a.Stock)
	case a.Rating.IsNegative() || a.Rating.GreaterThan(MaxRating):
		return fmt.Errorf("item %s: rating %s outside 0-5", a.ID, a.Rating)
	case a.ActiveBids < 0:
		return fmt.Errorf("item %s: active bids %d is negative", a.ID, a.ActiveBids)
	case a.Status != StatusOpen && a.Status != StatusClosed:
		return fmt.Errorf("item %s: unknown status %q", a.ID, a.Status)
	case a.Trend != TrendUp && a.Trend != TrendDown:
		return fmt.Errorf("item %s: unknown trend %q", a.ID, a.Trend)
	}
	return nil
}

// AuctionItemView is the read-only projection handed to display layers.
type AuctionItemView struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Supplier      string          `json:"supplier"`
	Location      string          `json:"location"`
	Quality       string          `json:"quality"`
	Certification string          `json:"certification"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	DisplayPrice  decimal.Decimal `json:"display_price"` // Rounded to whole units
	PreviousPrice decimal.Decimal `json:"previous_price"`
	Trend         Trend           `json:"trend"`
	PercentChange decimal.Decimal `json:"percent_change"`
	MinimumBid    decimal.Decimal `json:"minimum_bid"`
	Stock         int             `json:"stock"`
	Rating        decimal.Decimal `json:"rating"`
	ActiveBids    int             `json:"active_bids"`
	Status        Status          `json:"status"`
	TimeRemaining time.Duration   `json:"time_remaining"`
	TimeLeft      string          `json:"time_left"` // e.g. "2h 45m"
	Progress      int             `json:"progress"`  // Auction progress bar, percent
	LastUpdatedAt time.Time       `json:"last_updated_at"`
	Version       uint64          `json:"version"`
}

// View projects the item for display at now.
func (a AuctionItem) View(now time.Time) AuctionItemView {
	remaining := a.TimeRemaining(now)
	status := a.Status
	if a.IsClosed(now) {
		status = StatusClosed
	}

	return AuctionItemView{
		ID:            a.ID,
		Name:          a.Name,
		Supplier:      a.Supplier,
		Location:      a.Location,
		Quality:       a.Quality,
		Certification: a.Certification,
		CurrentPrice:  a.CurrentPrice,
		DisplayPrice:  a.CurrentPrice.Round(0),
		PreviousPrice: a.PreviousPrice,
		Trend:         a.Trend,
		PercentChange: a.PercentChange,
		MinimumBid:    a.MinimumBid,
		Stock:         a.Stock,
		Rating:        a.Rating,
		ActiveBids:    a.ActiveBids,
		Status:        status,
		TimeRemaining: remaining,
		TimeLeft:      FormatTimeLeft(remaining),
		Progress:      progress(remaining),
		LastUpdatedAt: a.LastUpdatedAt,
		Version:       a.Version,
	}
}

// FormatTimeLeft renders a remaining duration as "2h 45m", "45m" or "closed".
func FormatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "closed"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		if m == 0 {
			return "<1m"
		}
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// progress is 100 minus 25 per whole hour left, floored at 20.
func progress(remaining time.Duration) int {
	if remaining <= 0 {
		return 100
	}
	return max(20, 100-int(remaining/time.Hour)*25)
}

// Bid is an externally submitted price proposal. It is never stored.
type Bid struct {
	ItemID      string
	Price       decimal.Decimal
	SubmittedAt time.Time
}

// CartEntry is a confirmed snapshot of an item taken at selection time.
type CartEntry struct {
	EntryID uuid.UUID       `json:"entry_id"`
	Item    AuctionItemView `json:"item"`
	AddedAt time.Time       `json:"added_at"`
}

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testItem() AuctionItem {
	return AuctionItem{
		ID:            "1",
		Name:          "Premium Basmati Rice",
		Supplier:      "Golden Grain Mills",
		CurrentPrice:  decimal.NewFromInt(85),
		PreviousPrice: decimal.NewFromInt(88),
		Trend:         TrendDown,
		MinimumBid:    decimal.NewFromInt(82),
		Stock:         500,
		Rating:        decimal.RequireFromString("4.8"),
		ActiveBids:    12,
		Status:        StatusOpen,
		ClosesAt:      testNow.Add(2*time.Hour + 45*time.Minute),
	}
}

func TestAuctionItem_PriceFloor(t *testing.T) {
	item := testItem()
	if got := item.PriceFloor(); !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("PriceFloor() = %s, want 80", got)
	}

	tests := []struct {
		minBid string
		want   string
	}{
		{"2", "0"},
		{"1.5", "0"},
		{"0", "0"},
		{"2.5", "0.5"},
	}
	for _, tt := range tests {
		item.MinimumBid = decimal.RequireFromString(tt.minBid)
		if got := item.PriceFloor(); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("PriceFloor() with minimum bid %s = %s, want %s", tt.minBid, got, tt.want)
		}
	}
}

func TestAuctionItem_TimeRemaining(t *testing.T) {
	item := testItem()

	if got := item.TimeRemaining(testNow); got != 2*time.Hour+45*time.Minute {
		t.Errorf("TimeRemaining() = %v, want 2h45m", got)
	}
	if got := item.TimeRemaining(testNow.Add(3 * time.Hour)); got != 0 {
		t.Errorf("TimeRemaining() after close = %v, want 0", got)
	}
	if item.IsClosed(testNow) {
		t.Error("IsClosed() = true before ClosesAt")
	}
	if !item.IsClosed(item.ClosesAt) {
		t.Error("IsClosed() = false at ClosesAt")
	}

	item.Status = StatusClosed
	if got := item.TimeRemaining(testNow); got != 0 {
		t.Errorf("TimeRemaining() for closed item = %v, want 0", got)
	}
}

func TestAuctionItem_MovePrice(t *testing.T) {
	tests := []struct {
		name        string
		from, to    string
		startTrend  Trend
		wantTrend   Trend
		wantPercent string
	}{
		{"up", "42", "45", TrendDown, TrendUp, "7.1"},
		{"down", "125", "120", TrendUp, TrendDown, "-4"},
		{"unchanged keeps trend", "50", "50", TrendDown, TrendDown, "0"},
		{"from zero", "0", "10", TrendDown, TrendUp, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := AuctionItem{CurrentPrice: decimal.RequireFromString(tt.from), Trend: tt.startTrend}
			item.MovePrice(decimal.RequireFromString(tt.to))

			if !item.PreviousPrice.Equal(decimal.RequireFromString(tt.from)) {
				t.Errorf("PreviousPrice = %s, want %s", item.PreviousPrice, tt.from)
			}
			if !item.CurrentPrice.Equal(decimal.RequireFromString(tt.to)) {
				t.Errorf("CurrentPrice = %s, want %s", item.CurrentPrice, tt.to)
			}
			if item.Trend != tt.wantTrend {
				t.Errorf("Trend = %s, want %s", item.Trend, tt.wantTrend)
			}
			if !item.PercentChange.Equal(decimal.RequireFromString(tt.wantPercent)) {
				t.Errorf("PercentChange = %s, want %s", item.PercentChange, tt.wantPercent)
			}
		})
	}
}

func TestAuctionItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AuctionItem)
		wantErr bool
	}{
		{"valid", func(*AuctionItem) {}, false},
		{"missing id", func(a *AuctionItem) { a.ID = "" }, true},
		{"missing name", func(a *AuctionItem) { a.Name = "" }, true},
		{"negative minimum", func(a *AuctionItem) { a.MinimumBid = decimal.NewFromInt(-1) }, true},
		{"below floor", func(a *AuctionItem) { a.CurrentPrice = decimal.RequireFromString("79.99") }, true},
		{"at floor", func(a *AuctionItem) { a.CurrentPrice = decimal.NewFromInt(80) }, false},
		{"negative stock", func(a *AuctionItem) { a.Stock = -1 }, true},
		{"rating above 5", func(a *AuctionItem) { a.Rating = decimal.RequireFromString("5.1") }, true},
		{"negative bids", func(a *AuctionItem) { a.ActiveBids = -1 }, true},
		{"unknown status", func(a *AuctionItem) { a.Status = "paused" }, true},
		{"unknown trend", func(a *AuctionItem) { a.Trend = "flat" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem()
			tt.mutate(&item)
			err := item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuctionItem_View(t *testing.T) {
	item := testItem()
	item.CurrentPrice = decimal.RequireFromString("84.6")

	v := item.View(testNow)

	if !v.DisplayPrice.Equal(decimal.NewFromInt(85)) {
		t.Errorf("DisplayPrice = %s, want 85", v.DisplayPrice)
	}
	if v.TimeLeft != "2h 45m" {
		t.Errorf("TimeLeft = %q, want %q", v.TimeLeft, "2h 45m")
	}
	if v.Progress != 50 {
		t.Errorf("Progress = %d, want 50", v.Progress)
	}
	if v.Status != StatusOpen {
		t.Errorf("Status = %s, want open", v.Status)
	}

	expired := item.View(item.ClosesAt.Add(time.Second))
	if expired.Status != StatusClosed {
		t.Errorf("Status after expiry = %s, want closed", expired.Status)
	}
	if expired.TimeLeft != "closed" {
		t.Errorf("TimeLeft after expiry = %q, want closed", expired.TimeLeft)
	}
}

func TestFormatTimeLeft(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "closed"},
		{-time.Minute, "closed"},
		{30 * time.Second, "<1m"},
		{45 * time.Minute, "45m"},
		{80 * time.Minute, "1h 20m"},
		{3*time.Hour + 15*time.Minute, "3h 15m"},
	}

	for _, tt := range tests {
		if got := FormatTimeLeft(tt.d); got != tt.want {
			t.Errorf("FormatTimeLeft(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestBidError(t *testing.T) {
	tests := []struct {
		reason   RejectReason
		sentinel error
		wantMsg  string
	}{
		{ReasonNotFound, ErrNotFound, "item 9 not found"},
		{ReasonTooLow, ErrBidTooLow, "bid 80.00 too low: minimum bid is 82.00"},
		{ReasonClosed, ErrAuctionClosed, "auction for item 9 has closed"},
		{ReasonEngineStopped, ErrEngineStopped, "market is shutting down"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			var err error = &BidError{
				ItemID:     "9",
				Reason:     tt.reason,
				Price:      decimal.NewFromInt(80),
				MinimumBid: decimal.NewFromInt(82),
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
			if got := ReasonOf(err); got != tt.reason {
				t.Errorf("ReasonOf() = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestInvariantError(t *testing.T) {
	err := &InvariantError{ItemID: "1", Invariant: "active bids decreased"}
	if !errors.Is(err, ErrInvariantViolation) {
		t.Error("InvariantError should unwrap to ErrInvariantViolation")
	}
	if ReasonOf(err) != "" {
		t.Error("ReasonOf(InvariantError) should be empty")
	}
}

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/model"
)

// Source produces seed items.
type Source interface {
	Load(ctx context.Context) ([]model.AuctionItem, error)
}

// Seed describes one item before it is anchored to a clock.
type Seed struct {
	ID            string          `yaml:"id"`
	Name          string          `yaml:"name"`
	Supplier      string          `yaml:"supplier"`
	Location      string          `yaml:"location"`
	Quality       string          `yaml:"quality"`
	Certification string          `yaml:"certification"`
	CurrentPrice  decimal.Decimal `yaml:"current_price"`
	PreviousPrice decimal.Decimal `yaml:"previous_price"` // Zero = same as current
	MinimumBid    decimal.Decimal `yaml:"minimum_bid"`
	Stock         int             `yaml:"stock"`
	Rating        decimal.Decimal `yaml:"rating"`
	ActiveBids    int             `yaml:"active_bids"`
	TimeLeft      time.Duration   `yaml:"time_left"`
	Closed        bool            `yaml:"closed"`
}

// Item anchors the seed at now, derives trend and percent change from the
// previous price, and validates the result.
func (s Seed) Item(now time.Time) (model.AuctionItem, error) {
	previous := s.PreviousPrice
	if previous.IsZero() {
		previous = s.CurrentPrice
	}

	item := model.AuctionItem{
		ID:            s.ID,
		Name:          s.Name,
		Supplier:      s.Supplier,
		Location:      s.Location,
		Quality:       s.Quality,
		Certification: s.Certification,
		CurrentPrice:  previous,
		Trend:         model.TrendUp,
		MinimumBid:    s.MinimumBid,
		Stock:         s.Stock,
		Rating:        s.Rating,
		ActiveBids:    s.ActiveBids,
		Status:        model.StatusOpen,
		ClosesAt:      now.Add(s.TimeLeft),
		LastUpdatedAt: now,
	}
	item.MovePrice(s.CurrentPrice)

	if s.Closed {
		item.Status = model.StatusClosed
	}

	if err := item.Validate(); err != nil {
		return model.AuctionItem{}, fmt.Errorf("invalid seed: %w", err)
	}
	return item, nil
}

// BuiltinSeeds are the staple items of the live market screen.
var BuiltinSeeds = []Seed{
	{
		ID:            "1",
		Name:          "Premium Basmati Rice",
		Supplier:      "Golden Grain Mills",
		Location:      "1.2 km away",
		Quality:       "Premium A+",
		Certification: "Organic",
		CurrentPrice:  decimal.NewFromInt(85),
		PreviousPrice: decimal.NewFromInt(88),
		MinimumBid:    decimal.NewFromInt(82),
		Stock:         500,
		Rating:        decimal.RequireFromString("4.8"),
		ActiveBids:    12,
		TimeLeft:      2*time.Hour + 45*time.Minute,
	},
	{
		ID:            "2",
		Name:          "Fresh Organic Tomatoes",
		Supplier:      "Fresh Valley Farms",
		Location:      "0.8 km away",
		Quality:       "Grade A",
		Certification: "Organic",
		CurrentPrice:  decimal.NewFromInt(45),
		PreviousPrice: decimal.NewFromInt(42),
		MinimumBid:    decimal.NewFromInt(44),
		Stock:         200,
		Rating:        decimal.RequireFromString("4.9"),
		ActiveBids:    8,
		TimeLeft:      1*time.Hour + 20*time.Minute,
	},
	{
		ID:            "3",
		Name:          "Red Chili Powder",
		Supplier:      "Spice King Distributors",
		Location:      "1.5 km away",
		Quality:       "Export Quality",
		Certification: "FSSAI",
		CurrentPrice:  decimal.NewFromInt(120),
		PreviousPrice: decimal.NewFromInt(125),
		MinimumBid:    decimal.NewFromInt(118),
		Stock:         80,
		Rating:        decimal.RequireFromString("4.7"),
		ActiveBids:    15,
		TimeLeft:      45 * time.Minute,
	},
	{
		ID:            "4",
		Name:          "Cooking Oil (Refined)",
		Supplier:      "Pure Oil Industries",
		Location:      "2.1 km away",
		Quality:       "Refined",
		Certification: "BIS",
		CurrentPrice:  decimal.NewFromInt(110),
		PreviousPrice: decimal.NewFromInt(107),
		MinimumBid:    decimal.NewFromInt(108),
		Stock:         150,
		Rating:        decimal.RequireFromString("4.6"),
		ActiveBids:    6,
		TimeLeft:      3*time.Hour + 15*time.Minute,
	},
}

// Builtin returns the staple items anchored at now.
func Builtin(now time.Time) []model.AuctionItem {
	items, err := fromSeeds(BuiltinSeeds, now)
	if err != nil {
		panic(fmt.Sprintf("catalog: builtin seeds are invalid: %v", err))
	}
	return items
}

// BuiltinSource serves the staple items.
type BuiltinSource struct {
	Now func() time.Time // Defaults to time.Now
}

// Load implements Source.
func (s BuiltinSource) Load(ctx context.Context) ([]model.AuctionItem, error) {
	return Builtin(nowOrDefault(s.Now)), nil
}

func fromSeeds(seeds []Seed, now time.Time) ([]model.AuctionItem, error) {
	items := make([]model.AuctionItem, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))

	for i, s := range seeds {
		item, err := s.Item(now)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func nowOrDefault(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

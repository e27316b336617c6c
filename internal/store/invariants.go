package store

import (
	"github.com/rickgao/live-market/internal/model"
)

// checkInvariants validates a candidate update against the previous state.
func checkInvariants(before, after model.AuctionItem) error {
	violation := func(what string) error {
		return &model.InvariantError{ItemID: before.ID, Invariant: what}
	}

	switch {
	case after.ID != before.ID:
		return violation("id is immutable")
	case !after.MinimumBid.Equal(before.MinimumBid):
		return violation("minimum bid is immutable")
	case !after.ClosesAt.Equal(before.ClosesAt):
		return violation("closing time is immutable")
	case after.Version != before.Version:
		return violation("version is owned by the store")
	case after.CurrentPrice.IsNegative():
		return violation("price is negative")
	case after.CurrentPrice.LessThan(after.PriceFloor()):
		return violation("price below minimum bid floor")
	case after.ActiveBids < 0:
		return violation("active bids negative")
	case after.ActiveBids < before.ActiveBids:
		return violation("active bids decreased")
	case after.Stock < 0:
		return violation("stock negative")
	case after.Rating.IsNegative() || after.Rating.GreaterThan(model.MaxRating):
		return violation("rating outside 0-5")
	case before.Status == model.StatusClosed && after.Status != model.StatusClosed:
		return violation("closed auction reopened")
	case after.Status != model.StatusOpen && after.Status != model.StatusClosed:
		return violation("unknown status")
	}
	return nil
}

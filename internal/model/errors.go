package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrNotFound           = errors.New("item not found")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrBidTooLow          = errors.New("bid too low")
	ErrAuctionClosed      = errors.New("auction closed")
	ErrEngineStopped      = errors.New("engine stopped")
)

// RejectReason classifies a rejected bid.
type RejectReason string

const (
	ReasonNotFound      RejectReason = "not_found"
	ReasonTooLow        RejectReason = "too_low"
	ReasonClosed        RejectReason = "closed"
	ReasonEngineStopped RejectReason = "engine_stopped"
)

// BidError is returned for every rejected bid. It unwraps to the matching
// sentinel so callers can use errors.Is.
type BidError struct {
	ItemID     string
	Reason     RejectReason
	Price      decimal.Decimal
	MinimumBid decimal.Decimal // Set for too_low
}

func (e *BidError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("item %s not found", e.ItemID)
	case ReasonTooLow:
		return fmt.Sprintf("bid %s too low: minimum bid is %s", e.Price.StringFixed(2), e.MinimumBid.StringFixed(2))
	case ReasonClosed:
		return fmt.Sprintf("auction for item %s has closed", e.ItemID)
	case ReasonEngineStopped:
		return "market is shutting down"
	}
	return fmt.Sprintf("bid on item %s rejected: %s", e.ItemID, e.Reason)
}

func (e *BidError) Unwrap() error {
	switch e.Reason {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonTooLow:
		return ErrBidTooLow
	case ReasonClosed:
		return ErrAuctionClosed
	case ReasonEngineStopped:
		return ErrEngineStopped
	}
	return nil
}

// InvariantError names the data model guarantee a mutation tried to break.
type InvariantError struct {
	ItemID    string
	Invariant string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("item %s: %s: %s", e.ItemID, ErrInvariantViolation, e.Invariant)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// ReasonOf extracts the reject reason from err, or "" if err is not a BidError.
func ReasonOf(err error) RejectReason {
	var be *BidError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ""
}

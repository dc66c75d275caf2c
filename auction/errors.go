package auction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors returned by House operations. Every failure is typed and
// aborts the operation with no state change.
var (
	// ErrInvalidPrice is returned by Create when the minimum price is not
	// positive.
	ErrInvalidPrice = errors.New("minimum price must be greater than zero")

	// ErrInvalidStartTime is returned by Create when the start time is
	// before the current time.
	ErrInvalidStartTime = errors.New("start time is in the past")

	// ErrAuctionNotOpen is returned by Bid outside [StartTime, EndTime]
	// or after settlement.
	ErrAuctionNotOpen = errors.New("auction is not open for bidding")

	// ErrAuctionStillOpen is returned by Settle before EndTime.
	ErrAuctionStillOpen = errors.New("auction has not ended yet")

	// ErrAlreadyClaimed is returned by Settle on an already settled auction.
	ErrAlreadyClaimed = errors.New("auction already claimed")

	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("auction not found")
)

// Reasons carried by InvalidEndTimeError.
const (
	ReasonTooShort = "auction duration too short"
	ReasonTooLong  = "auction duration too long"
)

// InvalidEndTimeError is returned by Create when the auction duration falls
// outside [MinDuration, MaxDuration]. Reason distinguishes the two sides.
type InvalidEndTimeError struct {
	Duration time.Duration
	Reason   string
}

func (e *InvalidEndTimeError) Error() string {
	return fmt.Sprintf("invalid end time: %s (%s)", e.Reason, e.Duration)
}

// BidTooLowError is returned by Bid when the offered amount is below the
// required minimum for the auction's current state.
type BidTooLowError struct {
	Offered  decimal.Decimal
	Required decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid of %s is below the required minimum of %s", e.Offered, e.Required)
}

// CustodyError wraps an asset registry failure. The registry's refusal is
// propagated, never masked, and the enclosing operation is aborted.
type CustodyError struct {
	Op      string // "escrow", "release", "resolve"
	AssetID uint64
	Err     error
}

func (e *CustodyError) Error() string {
	return fmt.Sprintf("custody transfer failed (%s, asset %d): %v", e.Op, e.AssetID, e.Err)
}

func (e *CustodyError) Unwrap() error { return e.Err }

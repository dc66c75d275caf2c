package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Duration bounds enforced at auction creation.
const (
	MinDuration = 24 * time.Hour
	MaxDuration = 60 * 24 * time.Hour
)

// NoBidder is the HighestBidder value of an auction without an accepted bid.
const NoBidder = ""

// Params contains the seller-supplied parameters for a new auction.
type Params struct {
	// AssetID identifies the asset instance being sold.
	AssetID uint64 `json:"asset_id"`

	// Registry is the address of the asset registry holding the asset.
	Registry string `json:"registry"`

	// MinPrice is the lowest acceptable first bid. Must be positive.
	MinPrice decimal.Decimal `json:"min_price"`

	// StartTime is when bidding opens. Must not be in the past.
	StartTime time.Time `json:"start_time"`

	// EndTime is when bidding closes, subject to anti-snipe extension.
	EndTime time.Time `json:"end_time"`

	// MinBidIncrement is the minimum amount each bid must exceed the
	// previous highest bid by.
	MinBidIncrement decimal.Decimal `json:"min_bid_increment"`

	// TimeExtensionWindow is how close to EndTime a bid must land to
	// trigger an extension.
	TimeExtensionWindow time.Duration `json:"time_extension_window,string"`

	// TimeExtensionIncrease is how far past the triggering bid the new
	// EndTime is placed.
	TimeExtensionIncrease time.Duration `json:"time_extension_increase,string"`
}

// Auction is one auction record. Records are created by House.Create,
// mutated by House.Bid while open and by House.Settle exactly once, and
// retained indefinitely after settlement.
type Auction struct {
	ID                    uint64          `json:"id"`
	AssetID               uint64          `json:"asset_id"`
	Registry              string          `json:"registry"`
	Seller                string          `json:"seller"`
	MinPrice              decimal.Decimal `json:"min_price"`
	StartTime             time.Time       `json:"start_time"`
	EndTime               time.Time       `json:"end_time"`
	MinBidIncrement       decimal.Decimal `json:"min_bid_increment"`
	TimeExtensionWindow   time.Duration   `json:"time_extension_window,string"`
	TimeExtensionIncrease time.Duration   `json:"time_extension_increase,string"`
	HighestBid            decimal.Decimal `json:"highest_bid"`
	HighestBidder         string          `json:"highest_bidder"`
	Claimed               bool            `json:"claimed"`
}

// Open reports whether the auction accepts bids at the given time.
func (a *Auction) Open(now time.Time) bool {
	return !a.Claimed && !now.Before(a.StartTime) && !now.After(a.EndTime)
}

// Ended reports whether the auction is past its end time.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// MinAcceptableBid returns the lowest amount the next bid must reach:
// MinPrice for the first bid, HighestBid + MinBidIncrement afterwards
// (never below MinPrice).
func (a *Auction) MinAcceptableBid() decimal.Decimal {
	if a.HighestBidder == NoBidder {
		return a.MinPrice
	}
	next := a.HighestBid.Add(a.MinBidIncrement)
	if next.LessThan(a.MinPrice) {
		return a.MinPrice
	}
	return next
}

// clone returns an independent copy of the record. Operations mutate a
// clone and commit it only after all side effects succeed.
func (a *Auction) clone() *Auction {
	c := *a
	return &c
}

package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies the kind of engine event.
type EventType string

const (
	EventAuctionCreated  EventType = "auction_created"
	EventBidPlaced       EventType = "bid_placed"
	EventAuctionExtended EventType = "auction_extended"
	EventAuctionSettled  EventType = "auction_settled"
)

// Event is a notification emitted after a committed state change. Events are
// intended for off-engine observers (indexers, UIs) and are not required for
// correctness; delivery is best-effort.
type Event struct {
	Type      EventType `json:"type"`
	AuctionID uint64    `json:"auction_id"`
	At        time.Time `json:"at"`

	// Bidder and Amount are set on bid_placed; Winner and Amount on
	// auction_settled (Winner empty for an unsold auction).
	Bidder string          `json:"bidder,omitempty"`
	Winner string          `json:"winner,omitempty"`
	Amount decimal.Decimal `json:"amount"`

	// NewEndTime is set on auction_extended.
	NewEndTime time.Time `json:"new_end_time,omitempty"`
}

// Notifier receives engine events. Implementations must not block: they are
// invoked synchronously inside the engine's serialization order.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

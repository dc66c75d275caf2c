// Package ledger tracks the bid value attached to auction calls while it is
// in the engine's custody.
//
// Each auction has at most one outstanding hold: the current highest bid.
// When a bid is outbid its hold is released back to the bidder's balance;
// at settlement the final hold is released to the seller. Balances are the
// withdrawable side of the ledger: funds a participant can recover after
// being outbid or after selling.
package ledger

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrHoldExists is returned by Hold when the auction already has an
	// outstanding hold. The engine must refund it first.
	ErrHoldExists = errors.New("ledger: auction already has an outstanding hold")

	// ErrNothingHeld is returned by Payout when the auction has no hold.
	ErrNothingHeld = errors.New("ledger: nothing held for auction")

	// ErrNonPositiveAmount is returned by Hold for a zero or negative amount.
	ErrNonPositiveAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientFunds is returned by Withdraw when the balance is too low.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
)

type hold struct {
	party  string
	amount decimal.Decimal
}

// Ledger is an in-memory funds ledger. It implements auction.FundsLedger.
type Ledger struct {
	mu       sync.Mutex
	holds    map[uint64]hold
	balances map[string]decimal.Decimal
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		holds:    make(map[uint64]hold),
		balances: make(map[string]decimal.Decimal),
	}
}

// Hold takes custody of amount attached by party to a bid on the auction.
func (l *Ledger) Hold(auctionID uint64, party string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if _, exists := l.holds[auctionID]; exists {
		return ErrHoldExists
	}
	l.holds[auctionID] = hold{party: party, amount: amount}
	return nil
}

// Refund releases the auction's hold back to the party that placed it.
// Refunding an auction with no hold is a no-op.
func (l *Ledger) Refund(auctionID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holds[auctionID]
	if !ok {
		return nil
	}
	delete(l.holds, auctionID)
	l.credit(h.party, h.amount)
	return nil
}

// Payout releases the auction's hold to a different party, the seller.
func (l *Ledger) Payout(auctionID uint64, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holds[auctionID]
	if !ok {
		return ErrNothingHeld
	}
	delete(l.holds, auctionID)
	l.credit(to, h.amount)
	return nil
}

// Withdraw removes amount from party's withdrawable balance.
func (l *Ledger) Withdraw(party string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	balance := l.balances[party]
	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	l.balances[party] = balance.Sub(amount)
	return nil
}

// Balance returns party's withdrawable balance.
func (l *Ledger) Balance(party string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.balances[party]; ok {
		return b
	}
	return decimal.Zero
}

// Held returns the party and amount currently held for the auction.
func (l *Ledger) Held(auctionID uint64) (string, decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holds[auctionID]
	if !ok {
		return "", decimal.Zero, false
	}
	return h.party, h.amount, true
}

func (l *Ledger) credit(party string, amount decimal.Decimal) {
	l.balances[party] = l.balances[party].Add(amount)
}

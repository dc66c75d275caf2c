package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// AssetRegistry is the custody interface the engine consumes. The registry
// tracks asset ownership; the engine only ever asks it to move custody and
// to report the current owner. Any failure aborts the enclosing operation.
type AssetRegistry interface {
	// TransferCustody moves the asset from one holder to another on behalf
	// of caller. It fails if from is not the current owner or caller lacks
	// transfer authorization.
	TransferCustody(ctx context.Context, caller string, assetID uint64, from, to string) error

	// OwnerOf returns the current owner of the asset.
	OwnerOf(ctx context.Context, assetID uint64) (string, error)
}

// RegistryResolver maps the registry address recorded on an auction to a
// usable AssetRegistry.
type RegistryResolver interface {
	Resolve(registry string) (AssetRegistry, error)
}

// FundsLedger holds bid value attached to calls. The engine maintains at
// most one outstanding hold per auction: the current highest bid.
type FundsLedger interface {
	// Hold takes custody of amount attached by party to a bid.
	Hold(auctionID uint64, party string, amount decimal.Decimal) error

	// Refund releases the current hold back to the party that placed it.
	// Releasing a nonexistent hold is a no-op.
	Refund(auctionID uint64) error

	// Payout releases the current hold to a different party (the seller).
	Payout(auctionID uint64, to string) error

	// Withdraw removes amount from party's withdrawable balance. The
	// engine uses it to re-take a hold it released while unwinding a
	// failed bid.
	Withdraw(party string, amount decimal.Decimal) error
}

// Store persists auction records. Save is called inside the operation that
// mutates the record, before the change is committed in memory.
type Store interface {
	Save(a *Auction) error
	LoadAll() ([]*Auction, error)
}

// Clock supplies the engine's view of current time. The engine observes
// time but never schedules wakeups; callers invoke Settle after EndTime.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Config configures a House.
type Config struct {
	// EscrowAccount is the participant identity under which the engine
	// holds escrowed assets in the registry.
	EscrowAccount string

	// Registries resolves auction registry addresses. Required.
	Registries RegistryResolver

	// Ledger holds attached bid funds. Required.
	Ledger FundsLedger

	// Store persists records. Optional; without it records are in-memory
	// only.
	Store Store

	// Clock defaults to SystemClock.
	Clock Clock

	// Notifier receives engine events. Optional.
	Notifier Notifier

	// Log defaults to slog.Default.
	Log *slog.Logger
}

// House is the auction engine: a collection of auction records keyed by
// sequential id, with one operation at a time applied against it. A single
// mutex covers every operation including its registry and store calls, so
// each operation either fully commits or leaves the prior state untouched
// before the next one is observed.
type House struct {
	escrow     string
	registries RegistryResolver
	ledger     FundsLedger
	store      Store
	clock      Clock
	notifier   Notifier
	log        *slog.Logger

	mu       sync.Mutex
	auctions map[uint64]*Auction
	nextID   uint64
}

// NewHouse creates the engine and, when a store is configured, recovers all
// previously persisted records. For every unsettled record with a highest
// bidder the escrow hold is rebuilt in the ledger, so settlement after a
// restart pays the seller the same way it would have without one.
func NewHouse(cfg Config) (*House, error) {
	if cfg.EscrowAccount == "" {
		return nil, errors.New("escrow account is required")
	}
	if cfg.Registries == nil {
		return nil, errors.New("registry resolver is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("funds ledger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	h := &House{
		escrow:     cfg.EscrowAccount,
		registries: cfg.Registries,
		ledger:     cfg.Ledger,
		store:      cfg.Store,
		clock:      cfg.Clock,
		notifier:   cfg.Notifier,
		log:        cfg.Log,
	}
	h.auctions = make(map[uint64]*Auction)

	if h.store != nil {
		records, err := h.store.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, a := range records {
			h.auctions[a.ID] = a
			if a.ID >= h.nextID {
				h.nextID = a.ID + 1
			}
			if !a.Claimed && a.HighestBidder != NoBidder {
				if err := h.ledger.Hold(a.ID, a.HighestBidder, a.HighestBid); err != nil {
					return nil, fmt.Errorf("rebuilding hold for auction %d: %w", a.ID, err)
				}
			}
		}
		if len(records) > 0 {
			h.log.Info("recovered auction records", "count", len(records), "next_id", h.nextID)
		}
	}

	return h, nil
}

// Create validates the parameters, escrows the asset, and allocates a new
// record. Creation is all-or-nothing: either the asset is escrowed and the
// record exists in its initial state, or neither happens.
func (h *House) Create(ctx context.Context, seller string, p Params) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()

	if !p.MinPrice.IsPositive() {
		return 0, ErrInvalidPrice
	}
	if p.StartTime.Before(now) {
		return 0, ErrInvalidStartTime
	}
	duration := p.EndTime.Sub(p.StartTime)
	if duration < MinDuration {
		return 0, &InvalidEndTimeError{Duration: duration, Reason: ReasonTooShort}
	}
	if duration > MaxDuration {
		return 0, &InvalidEndTimeError{Duration: duration, Reason: ReasonTooLong}
	}

	reg, err := h.registries.Resolve(p.Registry)
	if err != nil {
		return 0, &CustodyError{Op: "resolve", AssetID: p.AssetID, Err: err}
	}

	// Escrow before allocating the record: the registry refusing (seller
	// not the owner, approval not granted) must leave no trace.
	if err := reg.TransferCustody(ctx, h.escrow, p.AssetID, seller, h.escrow); err != nil {
		return 0, &CustodyError{Op: "escrow", AssetID: p.AssetID, Err: err}
	}

	a := &Auction{
		ID:                    h.nextID,
		AssetID:               p.AssetID,
		Registry:              p.Registry,
		Seller:                seller,
		MinPrice:              p.MinPrice,
		StartTime:             p.StartTime,
		EndTime:               p.EndTime,
		MinBidIncrement:       p.MinBidIncrement,
		TimeExtensionWindow:   p.TimeExtensionWindow,
		TimeExtensionIncrease: p.TimeExtensionIncrease,
		HighestBid:            decimal.Zero,
		HighestBidder:         NoBidder,
		Claimed:               false,
	}

	if err := h.persist(a); err != nil {
		// Undo the escrow so the seller keeps the asset.
		if rerr := reg.TransferCustody(ctx, h.escrow, p.AssetID, h.escrow, seller); rerr != nil {
			h.log.Error("escrow rollback failed", "auction_id", a.ID, "asset_id", p.AssetID, "err", rerr)
		}
		return 0, err
	}

	h.auctions[a.ID] = a
	h.nextID++

	h.log.Info("auction created",
		"auction_id", a.ID,
		"asset_id", a.AssetID,
		"seller", seller,
		"min_price", a.MinPrice,
		"end_time", a.EndTime,
	)
	h.emit(Event{Type: EventAuctionCreated, AuctionID: a.ID, At: now})

	return a.ID, nil
}

// Bid places a bid of amount by bidder on the given auction. The amount is
// the value attached to the call; it is held in the ledger and the previous
// highest bidder's hold is released first, so at most one hold is ever
// outstanding. Accepted bids within TimeExtensionWindow of EndTime push
// EndTime out, never in.
func (h *House) Bid(ctx context.Context, bidder string, id uint64, amount decimal.Decimal) (*Auction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := h.clock.Now()
	if !a.Open(now) {
		return nil, ErrAuctionNotOpen
	}

	required := a.MinAcceptableBid()
	if amount.LessThan(required) {
		return nil, &BidTooLowError{Offered: amount, Required: required}
	}

	next := a.clone()
	next.HighestBid = amount
	next.HighestBidder = bidder

	extended := false
	if a.EndTime.Sub(now) < a.TimeExtensionWindow {
		newEnd := now.Add(a.TimeExtensionIncrease)
		if newEnd.After(next.EndTime) {
			next.EndTime = newEnd
			extended = true
		}
	}

	if err := h.persist(next); err != nil {
		return nil, err
	}

	// Refund-then-accept: the outbid party's funds are released before the
	// new hold is taken. A ledger failure reverts the store write above.
	if err := h.ledger.Refund(id); err != nil {
		h.revertStore(a)
		return nil, err
	}
	if err := h.ledger.Hold(id, bidder, amount); err != nil {
		h.restoreHold(a)
		h.revertStore(a)
		return nil, err
	}

	h.auctions[id] = next

	h.log.Info("bid placed", "auction_id", id, "bidder", bidder, "amount", amount, "extended", extended)
	h.emit(Event{Type: EventBidPlaced, AuctionID: id, At: now, Bidder: bidder, Amount: amount})
	if extended {
		h.emit(Event{Type: EventAuctionExtended, AuctionID: id, At: now, NewEndTime: next.EndTime})
	}

	return next.clone(), nil
}

// Settle finalizes an ended auction: the asset goes to the highest bidder
// and the winning bid to the seller, or back to the seller if nobody bid.
// Any party may call it; the claimed flag makes the outcome happen exactly
// once.
func (h *House) Settle(ctx context.Context, id uint64) (*Auction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Claimed {
		return nil, ErrAlreadyClaimed
	}

	now := h.clock.Now()
	if !a.Ended(now) {
		return nil, ErrAuctionStillOpen
	}

	reg, err := h.registries.Resolve(a.Registry)
	if err != nil {
		return nil, &CustodyError{Op: "resolve", AssetID: a.AssetID, Err: err}
	}

	recipient := a.Seller
	if a.HighestBidder != NoBidder {
		recipient = a.HighestBidder
	}

	next := a.clone()
	next.Claimed = true

	// The custody release is the one step the engine cannot take back, so
	// it runs last. Ledger and store writes before it are undone on failure.
	if next.HighestBidder != NoBidder {
		if err := h.ledger.Payout(id, next.Seller); err != nil {
			return nil, err
		}
	}

	if err := h.persist(next); err != nil {
		h.revertPayout(a)
		return nil, err
	}

	if err := reg.TransferCustody(ctx, h.escrow, a.AssetID, h.escrow, recipient); err != nil {
		h.revertPayout(a)
		h.revertStore(a)
		return nil, &CustodyError{Op: "release", AssetID: a.AssetID, Err: err}
	}

	h.auctions[id] = next

	h.log.Info("auction settled",
		"auction_id", id,
		"winner", next.HighestBidder,
		"amount", next.HighestBid,
	)
	h.emit(Event{
		Type:      EventAuctionSettled,
		AuctionID: id,
		At:        now,
		Winner:    next.HighestBidder,
		Amount:    next.HighestBid,
	})

	return next.clone(), nil
}

// Get returns a read-only snapshot of the record.
func (h *House) Get(id uint64) (*Auction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	a, ok := h.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.clone(), nil
}

// List returns snapshots of all records ordered by id.
func (h *House) List() []*Auction {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Auction, 0, len(h.auctions))
	for _, a := range h.auctions {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *House) persist(a *Auction) error {
	if h.store == nil {
		return nil
	}
	return h.store.Save(a)
}

// revertStore writes the prior record back after a later side effect
// failed, keeping the store consistent with the in-memory state.
func (h *House) revertStore(a *Auction) {
	if h.store == nil {
		return
	}
	if err := h.store.Save(a); err != nil {
		h.log.Error("store rollback failed", "auction_id", a.ID, "err", err)
	}
}

// restoreHold re-takes the outbid party's hold after their refund was
// released but the replacing hold could not be taken.
func (h *House) restoreHold(a *Auction) {
	if a.HighestBidder == NoBidder {
		return
	}
	if err := h.ledger.Withdraw(a.HighestBidder, a.HighestBid); err != nil {
		h.log.Error("hold restore failed", "auction_id", a.ID, "bidder", a.HighestBidder, "err", err)
		return
	}
	if err := h.ledger.Hold(a.ID, a.HighestBidder, a.HighestBid); err != nil {
		h.log.Error("hold restore failed", "auction_id", a.ID, "bidder", a.HighestBidder, "err", err)
	}
}

// revertPayout puts a winning bid back on hold after the seller was paid
// but a later settlement step failed.
func (h *House) revertPayout(a *Auction) {
	if a.HighestBidder == NoBidder {
		return
	}
	if err := h.ledger.Withdraw(a.Seller, a.HighestBid); err != nil {
		h.log.Error("payout rollback failed", "auction_id", a.ID, "seller", a.Seller, "err", err)
		return
	}
	if err := h.ledger.Hold(a.ID, a.HighestBidder, a.HighestBid); err != nil {
		h.log.Error("payout rollback failed", "auction_id", a.ID, "seller", a.Seller, "err", err)
	}
}

func (h *House) emit(ev Event) {
	if h.notifier != nil {
		h.notifier.Notify(ev)
	}
}

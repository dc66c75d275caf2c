// Package testutil provides shared fixtures for auction house tests: a
// controllable clock, an assembled engine with in-memory collaborators, and
// parameter builders.
package testutil

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/ledger"
	"github.com/BorislavEnchev/AuctionHouse/registry"
)

// FakeClock is a Clock whose current time is set by the test.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock frozen at the given time.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to an absolute time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// EscrowAccount is the engine identity used by engines built with NewHouse.
const EscrowAccount = "auction-house"

// RegistryAddress is the registry address used by engines built with NewHouse.
const RegistryAddress = "test-registry"

// Fixture bundles an engine with its test collaborators.
type Fixture struct {
	House    *auction.House
	Registry *registry.Memory
	Ledger   *ledger.Ledger
	Clock    *FakeClock
	Events   *EventRecorder
}

// NewHouse assembles an engine over an in-memory registry and ledger, with
// a fake clock and an event recorder.
func NewHouse(t *testing.T, now time.Time) *Fixture {
	t.Helper()

	clock := NewFakeClock(now)
	mem := registry.NewMemory()
	funds := ledger.New()
	events := &EventRecorder{}

	resolver := registry.NewStaticResolver()
	resolver.Register(RegistryAddress, mem)

	house, err := auction.NewHouse(auction.Config{
		EscrowAccount: EscrowAccount,
		Registries:    resolver,
		Ledger:        funds,
		Clock:         clock,
		Notifier:      events,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &Fixture{
		House:    house,
		Registry: mem,
		Ledger:   funds,
		Clock:    clock,
		Events:   events,
	}
}

// MintAndApprove mints the asset to the seller and approves the engine's
// escrow account, the prerequisite for Create to succeed.
func (f *Fixture) MintAndApprove(t *testing.T, assetID uint64, seller string) {
	t.Helper()
	require.NoError(t, f.Registry.Mint(assetID, seller))
	require.NoError(t, f.Registry.Approve(seller, assetID, EscrowAccount))
}

// Params returns valid creation parameters relative to the fixture clock:
// start one minute out, a thirty day run, unit price and increment, and a
// one minute anti-snipe window.
func (f *Fixture) Params(assetID uint64) auction.Params {
	now := f.Clock.Now()
	return auction.Params{
		AssetID:               assetID,
		Registry:              RegistryAddress,
		MinPrice:              decimal.NewFromInt(1),
		StartTime:             now.Add(time.Minute),
		EndTime:               now.Add(time.Minute + 30*24*time.Hour),
		MinBidIncrement:       decimal.NewFromInt(1),
		TimeExtensionWindow:   time.Minute,
		TimeExtensionIncrease: time.Minute,
	}
}

// EventRecorder captures emitted events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []auction.Event
}

// Notify records the event.
func (r *EventRecorder) Notify(ev auction.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of all recorded events.
func (r *EventRecorder) Events() []auction.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auction.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of the given type.
func (r *EventRecorder) OfType(t auction.EventType) []auction.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []auction.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

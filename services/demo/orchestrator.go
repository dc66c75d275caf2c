package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/BorislavEnchev/AuctionHouse/api/httpserver"
	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/client"
	"github.com/BorislavEnchev/AuctionHouse/ledger"
	"github.com/BorislavEnchev/AuctionHouse/registry"
	"github.com/BorislavEnchev/AuctionHouse/services"
)

// OrchestratorConfig contains deployment configuration.
type OrchestratorConfig struct {
	NumBidders int
	NumAssets  int
	NumRounds  int
	BasePort   int
}

const escrowAccount = "auction-house"

// stepClock is the orchestrator-controlled engine clock. Advancing it is the
// only way demo time passes.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{now: start}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Orchestrator deploys and drives a local auction house.
type Orchestrator struct {
	cfg   *OrchestratorConfig
	log   *slog.Logger
	clock *stepClock

	registryURL string
	houseURL    string

	registrySrv *http.Server
	houseSrv    *httpserver.BaseServer

	assets *registry.HTTPClient
	house  *client.Client

	auctionIDs []uint64
	eventsConn *websocket.Conn
	eventsDone chan struct{}
}

// NewOrchestrator creates an orchestrator with the given configuration.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		log:   slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})),
		clock: newStepClock(time.Now()),
	}
}

// Deploy starts the registry and auction house servers and escrows the demo
// assets.
func (o *Orchestrator) Deploy() error {
	o.registryURL = fmt.Sprintf("http://127.0.0.1:%d", o.cfg.BasePort)
	o.houseURL = fmt.Sprintf("http://127.0.0.1:%d", o.cfg.BasePort+1)

	if err := o.startRegistry(); err != nil {
		return fmt.Errorf("starting registry: %w", err)
	}
	if err := o.startHouse(); err != nil {
		return fmt.Errorf("starting auction house: %w", err)
	}

	o.assets = registry.NewHTTPClient(o.registryURL)
	o.house = client.New(o.houseURL)

	if err := o.waitReady(o.houseURL + "/livez"); err != nil {
		return err
	}
	if err := o.waitReady(o.registryURL + "/assets/0/owner"); err != nil {
		return err
	}

	ctx := context.Background()
	for i := 0; i < o.cfg.NumAssets; i++ {
		seller := fmt.Sprintf("seller-%d", i)
		if err := o.assets.Mint(ctx, uint64(i), seller); err != nil {
			return fmt.Errorf("minting asset %d: %w", i, err)
		}
		if err := o.assets.Approve(ctx, seller, uint64(i), escrowAccount); err != nil {
			return fmt.Errorf("approving asset %d: %w", i, err)
		}
	}

	fmt.Printf("Deployed: registry at %s, auction house at %s, %d assets minted\n",
		o.registryURL, o.houseURL, o.cfg.NumAssets)
	return nil
}

func (o *Orchestrator) startRegistry() error {
	mem := registry.NewMemory()
	svc := registry.NewService(mem, o.log)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	svc.RegisterRoutes(router)

	o.registrySrv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", o.cfg.BasePort),
		Handler: router,
	}
	go func() {
		if err := o.registrySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.log.Error("registry server failed", "err", err)
		}
	}()
	return nil
}

func (o *Orchestrator) startHouse() error {
	funds := ledger.New()
	eventHub := services.NewEventHub(o.log)

	house, err := auction.NewHouse(auction.Config{
		EscrowAccount: escrowAccount,
		Registries:    registry.NewHTTPResolver(),
		Ledger:        funds,
		Clock:         o.clock,
		Notifier:      eventHub,
		Log:           o.log,
	})
	if err != nil {
		return err
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               fmt.Sprintf("127.0.0.1:%d", o.cfg.BasePort+1),
		Log:                      o.log,
		DrainDuration:            time.Second,
		GracefulShutdownDuration: 5 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, services.NewHouseService(house, funds, o.log), eventHub)
	if err != nil {
		return err
	}

	o.houseSrv = srv
	srv.RunInBackground()
	return nil
}

func (o *Orchestrator) waitReady(url string) error {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("service at %s did not come up", url)
}

// Run drives the full auction lifecycle: creation, bidding rounds, a
// last-moment bid that triggers the anti-snipe extension, and settlement.
func (o *Orchestrator) Run() error {
	ctx := context.Background()

	o.watchEvents()

	start := o.clock.Now().Add(time.Minute)
	for i := 0; i < o.cfg.NumAssets; i++ {
		id, err := o.house.CreateAuction(ctx, fmt.Sprintf("seller-%d", i), auction.Params{
			AssetID:               uint64(i),
			Registry:              o.registryURL,
			MinPrice:              decimal.NewFromInt(10),
			StartTime:             start,
			EndTime:               start.Add(auction.MinDuration),
			MinBidIncrement:       decimal.NewFromInt(1),
			TimeExtensionWindow:   5 * time.Minute,
			TimeExtensionIncrease: 10 * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("creating auction for asset %d: %w", i, err)
		}
		o.auctionIDs = append(o.auctionIDs, id)
	}
	fmt.Printf("Created %d auctions\n", len(o.auctionIDs))

	// Open the auctions and run the bidding rounds.
	o.clock.Advance(2 * time.Minute)
	for round := 0; round < o.cfg.NumRounds; round++ {
		bidder := fmt.Sprintf("bidder-%d", round%o.cfg.NumBidders)
		for _, id := range o.auctionIDs {
			a, err := o.house.GetAuction(ctx, id)
			if err != nil {
				return err
			}
			if _, err := o.house.PlaceBid(ctx, bidder, id, a.MinAcceptableBid()); err != nil {
				return fmt.Errorf("bid on auction %d: %w", id, err)
			}
		}
	}

	// Jump to just before the end and snipe: the engine pushes EndTime out.
	o.clock.Advance(auction.MinDuration - 6*time.Minute)
	sniper := fmt.Sprintf("bidder-%d", o.cfg.NumRounds%o.cfg.NumBidders)
	for _, id := range o.auctionIDs {
		a, err := o.house.GetAuction(ctx, id)
		if err != nil {
			return err
		}
		updated, err := o.house.PlaceBid(ctx, sniper, id, a.MinAcceptableBid())
		if err != nil {
			return fmt.Errorf("snipe bid on auction %d: %w", id, err)
		}
		fmt.Printf("Auction %d end time extended to %s\n", id, updated.EndTime.Format(time.RFC3339))
	}

	// Past the extended end: settle everything.
	o.clock.Advance(30 * time.Minute)
	for _, id := range o.auctionIDs {
		settled, err := o.house.Settle(ctx, "demo", id)
		if err != nil {
			return fmt.Errorf("settling auction %d: %w", id, err)
		}
		owner, err := o.assets.OwnerOf(ctx, settled.AssetID)
		if err != nil {
			return err
		}
		balance, err := o.house.Balance(ctx, settled.Seller)
		if err != nil {
			return err
		}
		fmt.Printf("Auction %d settled: asset %d -> %s for %s (seller %s balance: %s)\n",
			settled.ID, settled.AssetID, owner, settled.HighestBid, settled.Seller, balance)
	}

	return nil
}

// watchEvents streams the engine's event feed like an external indexer would.
func (o *Orchestrator) watchEvents() {
	wsURL := fmt.Sprintf("ws://127.0.0.1:%d/events", o.cfg.BasePort+1)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		o.log.Warn("event stream unavailable", "err", err)
		return
	}

	o.eventsConn = conn
	o.eventsDone = make(chan struct{})
	go func() {
		defer close(o.eventsDone)
		for {
			var ev auction.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			fmt.Printf("  event: %s auction=%d\n", ev.Type, ev.AuctionID)
		}
	}()
}

// Shutdown stops all demo services.
func (o *Orchestrator) Shutdown() {
	if o.eventsConn != nil {
		o.eventsConn.Close()
		<-o.eventsDone
	}
	if o.houseSrv != nil {
		o.houseSrv.Shutdown()
	}
	if o.registrySrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.registrySrv.Shutdown(ctx)
	}
}

// Command auctionhouse runs the auction engine service.
//
// The engine exposes auction creation, bidding, and settlement over HTTP,
// holds escrowed assets in an external asset registry, and streams events
// to websocket subscribers at /events.
//
// # Configuration File
//
// Create a YAML file with service settings:
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	escrow_account: "auction-house"
//	registry_url: "http://localhost:8081"
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: auctionhouse
//	  password: secret
//	  database: auctionhouse
//
// Without registry_url the server runs an embedded in-memory registry under
// the address "local", seeded from dev_mints. Development only.
//
// # Usage
//
//	go run ./cmd/auctionhouse --config=auctionhouse.yaml
//	go run ./cmd/auctionhouse --addr=:8080 --registry=http://localhost:8081
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BorislavEnchev/AuctionHouse/api/httpserver"
	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/ledger"
	"github.com/BorislavEnchev/AuctionHouse/registry"
	"github.com/BorislavEnchev/AuctionHouse/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", "", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address")
		registryURL = flag.String("registry", "", "Asset registry base URL")
		escrow      = flag.String("escrow", "", "Escrow account identity")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debugging API")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg, *addr, *metricsAddr, *registryURL, *escrow, *enablePprof)

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*Config, error) {
	if configPath != "" {
		return LoadConfig(configPath)
	}
	return DefaultConfig(), nil
}

func applyFlagOverrides(cfg *Config, addr, metricsAddr, registryURL, escrow string, enablePprof bool) {
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if registryURL != "" {
		cfg.RegistryURL = registryURL
	}
	if escrow != "" {
		cfg.EscrowAccount = escrow
	}
	if enablePprof {
		cfg.EnablePprof = true
	}
}

func run(cfg *Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	resolver, verify := buildResolver(cfg, log)

	var store auction.Store
	if cfg.Postgres != nil {
		pgStore, err := services.NewPostgresStore(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres store: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
		log.Info("auction records persisted to postgres", "host", cfg.Postgres.Host)
	} else {
		log.Warn("no postgres configured, auction records are in-memory only")
	}

	funds := ledger.New()
	eventHub := services.NewEventHub(log)

	house, err := auction.NewHouse(auction.Config{
		EscrowAccount: cfg.EscrowAccount,
		Registries:    resolver,
		Ledger:        funds,
		Store:         store,
		Notifier:      eventHub,
		Log:           log,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	houseService := services.NewHouseService(house, funds, log)

	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		EnableCORS:               true,
		Log:                      log,
		DrainDuration:            cfg.DrainDuration(),
		GracefulShutdownDuration: cfg.ShutdownDuration(),
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, houseService, eventHub)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	server.RunInBackground()
	log.Info("auction house started", "addr", cfg.HTTPAddr, "escrow_account", cfg.EscrowAccount)

	// Post-start registry verification is best-effort: a failure here is
	// logged and does not stop the service.
	verify()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down auction house")
	server.Shutdown()
	return nil
}

// buildResolver wires the registry resolver for the configured mode and
// returns a verification probe to run after startup.
func buildResolver(cfg *Config, log *slog.Logger) (auction.RegistryResolver, func()) {
	if cfg.RegistryURL != "" {
		resolver := registry.NewHTTPResolver()
		probe := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			reg, err := resolver.Resolve(cfg.RegistryURL)
			if err != nil {
				log.Error("registry verification failed", "url", cfg.RegistryURL, "err", err)
				return
			}
			// Any response, including unknown-asset, proves the registry
			// answers custody queries.
			if _, err := reg.OwnerOf(ctx, 0); err != nil {
				log.Warn("registry probe", "url", cfg.RegistryURL, "result", err)
				return
			}
			log.Info("registry verified", "url", cfg.RegistryURL)
		}
		return resolver, probe
	}

	mem := registry.NewMemory()
	for _, m := range cfg.DevMints {
		if err := mem.Mint(m.AssetID, m.Owner); err != nil {
			log.Error("dev mint failed", "asset_id", m.AssetID, "err", err)
		}
	}
	log.Warn("using embedded in-memory registry", "address", "local", "mints", len(cfg.DevMints))

	resolver := registry.NewStaticResolver()
	resolver.Register("local", mem)
	return resolver, func() {}
}

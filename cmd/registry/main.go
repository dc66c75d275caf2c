// Command registry runs a standalone asset registry service.
//
// The registry tracks asset ownership and approvals and performs custody
// transfers on behalf of authorized callers. The auction house escrows
// assets through it; it is a development stand-in for whatever custody
// system a production deployment uses.
//
// # Configuration File
//
//	http_addr: ":8081"
//	mints:
//	  - asset_id: 0
//	    owner: "alice"
//	  - asset_id: 1
//	    owner: "bob"
//
// # Endpoints
//
//   - POST /assets - Mint an asset
//   - POST /assets/{id}/approve - Approve a transfer operator
//   - POST /assets/{id}/transfer - Transfer custody
//   - GET /assets/{id}/owner - Query current owner
//   - GET /health - Health check
//
// # Usage
//
//	go run ./cmd/registry --config=registry.yaml
//	go run ./cmd/registry --addr=:8081
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v3"

	"github.com/BorislavEnchev/AuctionHouse/registry"
)

type config struct {
	HTTPAddr string `yaml:"http_addr"`
	Mints    []struct {
		AssetID uint64 `yaml:"asset_id"`
		Owner   string `yaml:"owner"`
	} `yaml:"mints"`
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		addr       = flag.String("addr", ":8081", "HTTP listen address")
	)
	flag.Parse()

	cfg := &config{HTTPAddr: *addr}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Printf("Error reading config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			fmt.Printf("Error parsing config: %v\n", err)
			os.Exit(1)
		}
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mem := registry.NewMemory()
	for _, m := range cfg.Mints {
		if err := mem.Mint(m.AssetID, m.Owner); err != nil {
			return fmt.Errorf("minting asset %d: %w", m.AssetID, err)
		}
		log.Info("asset minted", "asset_id", m.AssetID, "owner", m.Owner)
	}

	service := registry.NewService(mem, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	service.RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("registry listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down registry")
	return server.Shutdown(ctx)
}

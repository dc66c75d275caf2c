// Package metrics exposes operational counters for the auction house and an
// optional Prometheus-compatible metrics listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Engine counters. Incremented at the service layer after each committed
// (or rejected) operation.
var (
	AuctionsCreated  = metrics.NewCounter("auctionhouse_auctions_created_total")
	BidsPlaced       = metrics.NewCounter("auctionhouse_bids_placed_total")
	BidsRejected     = metrics.NewCounter("auctionhouse_bids_rejected_total")
	AuctionsExtended = metrics.NewCounter("auctionhouse_auctions_extended_total")
	AuctionsSettled  = metrics.NewCounter("auctionhouse_auctions_settled_total")
)

// MetricsServer serves the metrics endpoint on its own listener, separate
// from the API server.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. An empty addr returns a
// server whose ListenAndServe is a no-op, so callers need not special-case
// a disabled metrics listener.
func New(addr string) (*MetricsServer, error) {
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe starts the metrics listener.
func (s *MetricsServer) ListenAndServe() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

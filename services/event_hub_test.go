package services_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/services"
)

func setupEventServer(t *testing.T) (*services.EventHub, *websocket.Conn) {
	t.Helper()

	hub := services.NewEventHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	hub.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func TestEventHub_DeliversEvents(t *testing.T) {
	hub, conn := setupEventServer(t)

	sent := auction.Event{
		Type:      auction.EventBidPlaced,
		AuctionID: 3,
		Bidder:    "bob",
		Amount:    decimal.NewFromInt(10),
		At:        time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}

	// The subscriber registers during the websocket handshake; the dial
	// above has completed, so the hub already sees it.
	hub.Notify(sent)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got auction.Event
	require.NoError(t, conn.ReadJSON(&got))

	require.Equal(t, auction.EventBidPlaced, got.Type)
	require.Equal(t, uint64(3), got.AuctionID)
	require.Equal(t, "bob", got.Bidder)
	require.True(t, got.Amount.Equal(sent.Amount))
}

func TestEventHub_MultipleSubscribers(t *testing.T) {
	hub, conn1 := setupEventServer(t)

	// Second subscriber on the same hub.
	r := chi.NewRouter()
	hub.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/events"
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn2.Close() })

	hub.Notify(auction.Event{Type: auction.EventAuctionCreated, AuctionID: 1})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var got auction.Event
		require.NoError(t, conn.ReadJSON(&got))
		require.Equal(t, auction.EventAuctionCreated, got.Type)
	}
}

func TestEventHub_NotifyWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := services.NewEventHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		hub.Notify(auction.Event{Type: auction.EventAuctionCreated, AuctionID: 0})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no subscribers")
	}
}

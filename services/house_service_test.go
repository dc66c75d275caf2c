package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/client"
	"github.com/BorislavEnchev/AuctionHouse/services"
	"github.com/BorislavEnchev/AuctionHouse/testutil"
)

var testEpoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func setupServer(t *testing.T) (*testutil.Fixture, *client.Client) {
	t.Helper()

	f := testutil.NewHouse(t, testEpoch)
	svc := services.NewHouseService(f.House, f.Ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	svc.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return f, client.New(srv.URL)
}

func TestHouseService_FullAuctionFlow(t *testing.T) {
	f, c := setupServer(t)
	ctx := context.Background()

	f.MintAndApprove(t, 0, "alice")
	params := f.Params(0)

	id, err := c.CreateAuction(ctx, "alice", params)
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	fetched, err := c.GetAuction(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "alice", fetched.Seller)
	require.True(t, fetched.MinPrice.Equal(params.MinPrice))
	require.False(t, fetched.Claimed)

	f.Clock.Advance(2 * time.Minute)

	a, err := c.PlaceBid(ctx, "b1", id, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Equal(t, "b1", a.HighestBidder)

	a, err = c.PlaceBid(ctx, "b2", id, decimal.NewFromInt(15))
	require.NoError(t, err)
	require.Equal(t, "b2", a.HighestBidder)
	require.True(t, a.HighestBid.Equal(decimal.NewFromInt(15)))

	// The outbid party's funds are withdrawable.
	balance, err := c.Balance(ctx, "b1")
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(10)))

	f.Clock.Set(params.EndTime.Add(time.Second))

	settled, err := c.Settle(ctx, "anyone", id)
	require.NoError(t, err)
	require.True(t, settled.Claimed)
	require.Equal(t, "b2", settled.HighestBidder)

	balance, err = c.Balance(ctx, "alice")
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(15)))

	list, err := c.ListAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestHouseService_ErrorCodes(t *testing.T) {
	f, c := setupServer(t)
	ctx := context.Background()

	f.MintAndApprove(t, 0, "alice")

	// Validation failure surfaces its error code.
	bad := f.Params(0)
	bad.MinPrice = decimal.Zero
	_, err := c.CreateAuction(ctx, "alice", bad)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeInvalidPrice, apiErr.Code)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)

	params := f.Params(0)
	id, err := c.CreateAuction(ctx, "alice", params)
	require.NoError(t, err)

	// Settling before the end.
	_, err = c.Settle(ctx, "alice", id)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeAuctionStillOpen, apiErr.Code)
	require.Equal(t, http.StatusConflict, apiErr.Status)

	// Bidding before the start.
	_, err = c.PlaceBid(ctx, "bob", id, decimal.NewFromInt(10))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeAuctionNotOpen, apiErr.Code)

	// Too-low bid.
	f.Clock.Advance(2 * time.Minute)
	_, err = c.PlaceBid(ctx, "bob", id, decimal.Zero)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeBidTooLow, apiErr.Code)

	// Unknown auction.
	_, err = c.GetAuction(ctx, 99)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeNotFound, apiErr.Code)
	require.Equal(t, http.StatusNotFound, apiErr.Status)

	// Double settle.
	f.Clock.Set(params.EndTime.Add(time.Second))
	_, err = c.Settle(ctx, "alice", id)
	require.NoError(t, err)
	_, err = c.Settle(ctx, "alice", id)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeAlreadyClaimed, apiErr.Code)
}

func TestHouseService_CustodyRefusalPropagates(t *testing.T) {
	f, c := setupServer(t)
	ctx := context.Background()

	// Minted but never approved: the registry refuses the escrow.
	require.NoError(t, f.Registry.Mint(0, "alice"))

	_, err := c.CreateAuction(ctx, "alice", f.Params(0))

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeCustodyFailed, apiErr.Code)
	require.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestHouseService_RejectsMissingCaller(t *testing.T) {
	f, _ := setupServer(t)

	svc := services.NewHouseService(f.House, f.Ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	svc.RegisterRoutes(r)

	body, err := json.Marshal(map[string]any{"asset_id": 0})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auctions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp services.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, services.CodeBadRequest, resp.Code)
}

func TestHouseService_AuctionJSONRoundTrip(t *testing.T) {
	f, c := setupServer(t)
	ctx := context.Background()

	f.MintAndApprove(t, 0, "alice")
	params := f.Params(0)

	id, err := c.CreateAuction(ctx, "alice", params)
	require.NoError(t, err)

	a, err := c.GetAuction(ctx, id)
	require.NoError(t, err)

	// Durations survive the wire: they determine extension behavior on
	// the reading side (indexers showing countdowns).
	require.Equal(t, params.TimeExtensionWindow, a.TimeExtensionWindow)
	require.Equal(t, params.TimeExtensionIncrease, a.TimeExtensionIncrease)
	require.True(t, a.StartTime.Equal(params.StartTime))
	require.True(t, a.EndTime.Equal(params.EndTime))
}

func TestHouseService_Withdraw(t *testing.T) {
	f, c := setupServer(t)
	ctx := context.Background()

	f.MintAndApprove(t, 0, "alice")
	id, err := c.CreateAuction(ctx, "alice", f.Params(0))
	require.NoError(t, err)

	f.Clock.Advance(2 * time.Minute)
	_, err = c.PlaceBid(ctx, "b1", id, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = c.PlaceBid(ctx, "b2", id, decimal.NewFromInt(15))
	require.NoError(t, err)

	// The outbid party withdraws part of their refunded funds.
	remaining, err := c.Withdraw(ctx, "b1", decimal.NewFromInt(4))
	require.NoError(t, err)
	require.True(t, remaining.Equal(decimal.NewFromInt(6)))

	var apiErr *client.APIError
	_, err = c.Withdraw(ctx, "b1", decimal.NewFromInt(100))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, services.CodeInsufficientFunds, apiErr.Code)
	require.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestHouseService_SettleEmptyBody(t *testing.T) {
	f, _ := setupServer(t)
	ctx := context.Background()

	f.MintAndApprove(t, 0, "alice")
	params := f.Params(0)
	id, err := f.House.Create(ctx, "alice", params)
	require.NoError(t, err)
	f.Clock.Set(params.EndTime.Add(time.Second))

	svc := services.NewHouseService(f.House, f.Ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	svc.RegisterRoutes(r)

	// Settle takes no required body; anyone can trigger it.
	req := httptest.NewRequest(http.MethodPost, "/auctions/0/settle", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var settled auction.Auction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settled))
	require.True(t, settled.Claimed)
	require.Equal(t, id, settled.ID)
}

// Package client provides an HTTP client for the auction house API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/services"
)

// APIError is a typed rejection returned by the auction house API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auction house API error (status %d, %s): %s", e.Status, e.Code, e.Message)
}

// Client talks to an auction house server.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the auction house at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient creates a client using the provided http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  hc,
	}
}

// CreateAuction creates an auction on behalf of caller and returns its id.
// The caller must have approved the auction house on the asset registry
// beforehand, or creation fails with a custody error.
func (c *Client) CreateAuction(ctx context.Context, caller string, params auction.Params) (uint64, error) {
	req := &services.CreateAuctionRequest{Caller: caller, Params: params}

	var resp services.CreateAuctionResponse
	if err := c.post(ctx, "/auctions", req, &resp); err != nil {
		return 0, err
	}
	return resp.AuctionID, nil
}

// PlaceBid places a bid of amount on the auction on behalf of caller and
// returns the updated record.
func (c *Client) PlaceBid(ctx context.Context, caller string, auctionID uint64, amount decimal.Decimal) (*auction.Auction, error) {
	req := &services.PlaceBidRequest{Caller: caller, Amount: amount}

	var resp auction.Auction
	if err := c.post(ctx, fmt.Sprintf("/auctions/%d/bids", auctionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settle finalizes an ended auction and returns the settled record.
func (c *Client) Settle(ctx context.Context, caller string, auctionID uint64) (*auction.Auction, error) {
	req := &services.SettleRequest{Caller: caller}

	var resp auction.Auction
	if err := c.post(ctx, fmt.Sprintf("/auctions/%d/settle", auctionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAuction fetches a single auction record.
func (c *Client) GetAuction(ctx context.Context, auctionID uint64) (*auction.Auction, error) {
	var resp auction.Auction
	if err := c.get(ctx, fmt.Sprintf("/auctions/%d", auctionID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAuctions fetches all auction records ordered by id.
func (c *Client) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	var resp []*auction.Auction
	if err := c.get(ctx, "/auctions", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Balance fetches a participant's withdrawable ledger balance.
func (c *Client) Balance(ctx context.Context, party string) (decimal.Decimal, error) {
	var resp services.BalanceResponse
	if err := c.get(ctx, "/balances/"+party, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

// Withdraw removes amount from party's withdrawable balance and returns the
// remaining balance.
func (c *Client) Withdraw(ctx context.Context, party string, amount decimal.Decimal) (decimal.Decimal, error) {
	req := &services.WithdrawRequest{Amount: amount}

	var resp services.BalanceResponse
	if err := c.post(ctx, "/balances/"+party+"/withdraw", req, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Balance, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("auction house request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e services.ErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Code != "" {
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}
	return &APIError{Status: resp.StatusCode, Code: "unknown", Message: string(raw)}
}

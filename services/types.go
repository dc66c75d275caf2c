// Package services wires the auction engine into its HTTP surface:
// request/response types, the chi route registrar, persistence stores, and
// the websocket event hub for off-engine observers.
package services

import (
	"github.com/shopspring/decimal"

	"github.com/BorislavEnchev/AuctionHouse/auction"
)

// CreateAuctionRequest is the body of POST /auctions. Caller identity is an
// explicit field: the engine is a pure function of (state, inputs) and does
// not rely on ambient identity.
type CreateAuctionRequest struct {
	Caller string `json:"caller"`
	auction.Params
}

// CreateAuctionResponse confirms auction creation.
type CreateAuctionResponse struct {
	AuctionID uint64 `json:"auction_id"`
}

// PlaceBidRequest is the body of POST /auctions/{id}/bids. Amount is the
// value attached to the call, taken into ledger custody if the bid is
// accepted.
type PlaceBidRequest struct {
	Caller string          `json:"caller"`
	Amount decimal.Decimal `json:"amount"`
}

// SettleRequest is the body of POST /auctions/{id}/settle. Any party may
// settle an ended auction.
type SettleRequest struct {
	Caller string `json:"caller"`
}

// WithdrawRequest is the body of POST /balances/{party}/withdraw.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse is the body of GET /balances/{party}.
type BalanceResponse struct {
	Party   string          `json:"party"`
	Balance decimal.Decimal `json:"balance"`
}

// ErrorResponse carries a typed engine rejection to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes returned in ErrorResponse.Code, one per engine failure type.
const (
	CodeInvalidPrice      = "invalid_price"
	CodeInvalidStartTime  = "invalid_start_time"
	CodeInvalidEndTime    = "invalid_end_time"
	CodeAuctionNotOpen    = "auction_not_open"
	CodeBidTooLow         = "bid_too_low"
	CodeAuctionStillOpen  = "auction_still_open"
	CodeAlreadyClaimed    = "already_claimed"
	CodeCustodyFailed     = "custody_transfer_failed"
	CodeInsufficientFunds = "insufficient_funds"
	CodeNotFound          = "not_found"
	CodeBadRequest        = "bad_request"
)

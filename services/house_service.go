package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/ledger"
	"github.com/BorislavEnchev/AuctionHouse/metrics"
)

// HouseService exposes the auction engine over HTTP.
type HouseService struct {
	house  *auction.House
	ledger *ledger.Ledger
	log    *slog.Logger
}

// NewHouseService creates the HTTP surface over the engine. The ledger is
// the same instance the engine holds funds in; it backs the balances
// endpoint.
func NewHouseService(house *auction.House, l *ledger.Ledger, log *slog.Logger) *HouseService {
	if log == nil {
		log = slog.Default()
	}
	return &HouseService{house: house, ledger: l, log: log}
}

// RegisterRoutes registers the auction endpoints with the router.
func (s *HouseService) RegisterRoutes(r chi.Router) {
	r.Post("/auctions", s.handleCreate)
	r.Get("/auctions", s.handleList)
	r.Get("/auctions/{id}", s.handleGet)
	r.Post("/auctions/{id}/bids", s.handleBid)
	r.Post("/auctions/{id}/settle", s.handleSettle)
	r.Get("/balances/{party}", s.handleBalance)
	r.Post("/balances/{party}/withdraw", s.handleWithdraw)
}

func (s *HouseService) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if req.Caller == "" {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, errors.New("caller is required"))
		return
	}

	id, err := s.house.Create(r.Context(), req.Caller, req.Params)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.AuctionsCreated.Inc()
	writeJSON(w, http.StatusCreated, &CreateAuctionResponse{AuctionID: id})
}

func (s *HouseService) handleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionIDParam(w, r)
	if !ok {
		return
	}

	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if req.Caller == "" {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, errors.New("caller is required"))
		return
	}

	a, err := s.house.Bid(r.Context(), req.Caller, id, req.Amount)
	if err != nil {
		metrics.BidsRejected.Inc()
		s.writeEngineError(w, err)
		return
	}

	metrics.BidsPlaced.Inc()
	writeJSON(w, http.StatusOK, a)
}

func (s *HouseService) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionIDParam(w, r)
	if !ok {
		return
	}

	// The settle body is optional; the caller field is informational only.
	var req SettleRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a, err := s.house.Settle(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.AuctionsSettled.Inc()
	writeJSON(w, http.StatusOK, a)
}

func (s *HouseService) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.auctionIDParam(w, r)
	if !ok {
		return
	}

	a, err := s.house.Get(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *HouseService) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.house.List())
}

func (s *HouseService) handleBalance(w http.ResponseWriter, r *http.Request) {
	party := chi.URLParam(r, "party")
	writeJSON(w, http.StatusOK, &BalanceResponse{
		Party:   party,
		Balance: s.ledger.Balance(party),
	})
}

func (s *HouseService) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	party := chi.URLParam(r, "party")

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		return
	}

	if err := s.ledger.Withdraw(party, req.Amount); err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			s.writeError(w, http.StatusConflict, CodeInsufficientFunds, err)
		default:
			s.writeError(w, http.StatusBadRequest, CodeBadRequest, err)
		}
		return
	}

	s.log.Info("funds withdrawn", "party", party, "amount", req.Amount)
	writeJSON(w, http.StatusOK, &BalanceResponse{
		Party:   party,
		Balance: s.ledger.Balance(party),
	})
}

func (s *HouseService) auctionIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, errors.New("invalid auction id"))
		return 0, false
	}
	return id, true
}

// writeEngineError maps a typed engine failure to its wire representation.
func (s *HouseService) writeEngineError(w http.ResponseWriter, err error) {
	var (
		endTimeErr *auction.InvalidEndTimeError
		bidErr     *auction.BidTooLowError
		custodyErr *auction.CustodyError
	)

	switch {
	case errors.Is(err, auction.ErrInvalidPrice):
		s.writeError(w, http.StatusBadRequest, CodeInvalidPrice, err)
	case errors.Is(err, auction.ErrInvalidStartTime):
		s.writeError(w, http.StatusBadRequest, CodeInvalidStartTime, err)
	case errors.As(err, &endTimeErr):
		s.writeError(w, http.StatusBadRequest, CodeInvalidEndTime, err)
	case errors.As(err, &bidErr):
		s.writeError(w, http.StatusBadRequest, CodeBidTooLow, err)
	case errors.Is(err, auction.ErrAuctionNotOpen):
		s.writeError(w, http.StatusConflict, CodeAuctionNotOpen, err)
	case errors.Is(err, auction.ErrAuctionStillOpen):
		s.writeError(w, http.StatusConflict, CodeAuctionStillOpen, err)
	case errors.Is(err, auction.ErrAlreadyClaimed):
		s.writeError(w, http.StatusConflict, CodeAlreadyClaimed, err)
	case errors.Is(err, auction.ErrNotFound):
		s.writeError(w, http.StatusNotFound, CodeNotFound, err)
	case errors.As(err, &custodyErr):
		s.writeError(w, http.StatusConflict, CodeCustodyFailed, err)
	default:
		s.log.Error("unexpected engine error", "err", err)
		s.writeError(w, http.StatusInternalServerError, CodeBadRequest, err)
	}
}

func (s *HouseService) writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, &ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

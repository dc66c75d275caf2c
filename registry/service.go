package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Service exposes a Memory registry over HTTP for development and demo
// deployments. Routes mirror the client adapter in httpclient.go.
type Service struct {
	registry *Memory
	log      *slog.Logger
}

// NewService creates the HTTP surface over the given registry.
func NewService(registry *Memory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{registry: registry, log: log}
}

// RegisterRoutes registers the registry endpoints with the router.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/assets", s.handleMint)
	r.Post("/assets/{id}/approve", s.handleApprove)
	r.Post("/assets/{id}/transfer", s.handleTransfer)
	r.Get("/assets/{id}/owner", s.handleOwner)
}

func (s *Service) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.registry.Mint(req.AssetID, req.Owner); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.log.Info("asset minted", "asset_id", req.AssetID, "owner", req.Owner)
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) handleApprove(w http.ResponseWriter, r *http.Request) {
	assetID, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.registry.Approve(req.Caller, assetID, req.Spender); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleTransfer(w http.ResponseWriter, r *http.Request) {
	assetID, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.registry.TransferCustody(r.Context(), req.Caller, assetID, req.From, req.To); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.log.Info("custody transferred", "asset_id", assetID, "from", req.From, "to", req.To)
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleOwner(w http.ResponseWriter, r *http.Request) {
	assetID, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	owner, err := s.registry.OwnerOf(r.Context(), assetID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&OwnerResponse{AssetID: assetID, Owner: owner})
}

func assetIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid asset id"))
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, ErrAssetExists):
		return http.StatusConflict
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&errorResponse{Error: err.Error()})
}

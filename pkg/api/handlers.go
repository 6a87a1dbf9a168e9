package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/primitives"
	"github.com/openvenue/settled/pkg/settlement"
)

// CreateVenueRequest creates a venue.
type CreateVenueRequest struct {
	Details string   `json:"details,omitempty"`
	Signers []string `json:"signers,omitempty"`
}

func (s *Service) handleCreateVenue(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	signers := make([]primitives.AccountID, len(req.Signers))
	for i, signer := range req.Signers {
		signers[i] = primitives.AccountID(signer)
	}

	venueID, err := s.engine.CreateVenue(r.Context(), account, []byte(req.Details), signers)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"venue_id": venueID})
}

// LegRequest is one directed transfer in an instruction request.
type LegRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// AddInstructionRequest creates an instruction under a venue.
type AddInstructionRequest struct {
	SettlementKind string       `json:"settlement_kind"`
	SettlementDate *time.Time   `json:"settlement_date,omitempty"`
	ValidFrom      *time.Time   `json:"valid_from,omitempty"`
	Legs           []LegRequest `json:"legs"`
}

func (s *Service) handleAddInstruction(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	venueID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid venue id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req AddInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	var settlementType settlement.SettlementType
	switch settlement.SettlementKind(req.SettlementKind) {
	case settlement.SettleOnAuthorization, "":
		settlementType = settlement.OnAuthorization()
	case settlement.SettleOnDate:
		if req.SettlementDate == nil {
			WriteBadRequest(w, "settlement_date is required for SETTLE_ON_DATE")
			return
		}
		settlementType = settlement.OnDate(*req.SettlementDate)
	default:
		WriteBadRequest(w, "Unknown settlement_kind")
		return
	}

	legs := make([]settlement.LegInput, len(req.Legs))
	for i, leg := range req.Legs {
		ticker, err := primitives.NewTicker(leg.Asset)
		if err != nil {
			WriteBadRequest(w, err.Error())
			return
		}
		amount, err := decimal.NewFromString(leg.Amount)
		if err != nil {
			WriteBadRequest(w, "Invalid amount on leg "+leg.Asset)
			return
		}
		legs[i] = settlement.LegInput{
			From:   primitives.IdentityID(leg.From),
			To:     primitives.IdentityID(leg.To),
			Asset:  ticker,
			Amount: amount,
		}
	}

	instructionID, err := s.engine.AddInstruction(r.Context(), account, venueID, settlementType, req.ValidFrom, legs)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"instruction_id": instructionID})
}

// instructionAction wraps the authorize/unauthorize/reject/execute
// handlers, which share their shape.
func (s *Service) instructionAction(w http.ResponseWriter, r *http.Request, action func(account primitives.AccountID, instructionID uint64) error) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	if err := action(account, instructionID); err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	s.instructionAction(w, r, func(account primitives.AccountID, id uint64) error {
		return s.engine.AuthorizeInstruction(r.Context(), account, id)
	})
}

func (s *Service) handleUnauthorize(w http.ResponseWriter, r *http.Request) {
	s.instructionAction(w, r, func(account primitives.AccountID, id uint64) error {
		return s.engine.UnauthorizeInstruction(r.Context(), account, id)
	})
}

func (s *Service) handleReject(w http.ResponseWriter, r *http.Request) {
	s.instructionAction(w, r, func(account primitives.AccountID, id uint64) error {
		return s.engine.RejectInstruction(r.Context(), account, id)
	})
}

func (s *Service) handleExecute(w http.ResponseWriter, r *http.Request) {
	s.instructionAction(w, r, func(account primitives.AccountID, id uint64) error {
		return s.engine.ExecuteInstruction(r.Context(), account, id)
	})
}

// ClaimReceiptRequest claims an off-chain receipt for a leg.
type ClaimReceiptRequest struct {
	UID       uint64 `json:"uid"`
	From      string `json:"from"`
	To        string `json:"to"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Signer    string `json:"signer"`
	Signature string `json:"signature"` // hex
}

func (s *Service) handleClaimReceipt(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	legNumber, err := pathUint(r, "leg")
	if err != nil {
		WriteBadRequest(w, "Invalid leg number")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ClaimReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	ticker, err := primitives.NewTicker(req.Asset)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		WriteBadRequest(w, "Invalid amount")
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		WriteBadRequest(w, "Invalid signature encoding")
		return
	}

	receipt := settlement.Receipt{
		UID:    req.UID,
		From:   primitives.IdentityID(req.From),
		To:     primitives.IdentityID(req.To),
		Asset:  ticker,
		Amount: amount,
		Signer: primitives.AccountID(req.Signer),
	}
	if err := s.engine.ClaimReceipt(r.Context(), account, instructionID, legNumber, receipt, signature); err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleUnclaimReceipt(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	legNumber, err := pathUint(r, "leg")
	if err != nil {
		WriteBadRequest(w, "Invalid leg number")
		return
	}
	if err := s.engine.UnclaimReceipt(r.Context(), account, instructionID, legNumber); err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetFilteringRequest toggles venue filtering for an asset.
type SetFilteringRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Service) handleSetVenueFiltering(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	ticker, err := primitives.NewTicker(r.PathValue("ticker"))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SetFilteringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := s.engine.SetVenueFiltering(r.Context(), account, ticker, req.Enabled); err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VenueListRequest bulk-updates a ticker's venue allow-list.
type VenueListRequest struct {
	VenueIDs []uint64 `json:"venue_ids"`
}

func (s *Service) handleAllowVenues(w http.ResponseWriter, r *http.Request) {
	s.venueAllowance(w, r, s.engine.AllowVenues)
}

func (s *Service) handleDisallowVenues(w http.ResponseWriter, r *http.Request) {
	s.venueAllowance(w, r, s.engine.DisallowVenues)
}

func (s *Service) venueAllowance(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, account primitives.AccountID, ticker primitives.Ticker, venueIDs []uint64) error) {
	account, ok := caller(r)
	if !ok {
		WriteForbidden(w, "Missing "+accountHeader+" header")
		return
	}
	ticker, err := primitives.NewTicker(r.PathValue("ticker"))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req VenueListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := apply(r.Context(), account, ticker, req.VenueIDs); err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

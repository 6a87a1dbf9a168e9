package api

import (
	"net/http"
	"strconv"

	"github.com/openvenue/settled/pkg/primitives"
)

func (s *Service) handleVenueInfo(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid venue id")
		return
	}
	venue, err := s.engine.VenueInfo(venueID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (s *Service) handleVenueSigner(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid venue id")
		return
	}
	account := primitives.AccountID(r.PathValue("account"))
	writeJSON(w, http.StatusOK, map[string]bool{
		"signer": s.engine.VenueSigners(venueID, account),
	})
}

func (s *Service) handleInstructionDetails(w http.ResponseWriter, r *http.Request) {
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	instruction, err := s.engine.InstructionDetails(instructionID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instruction)
}

func (s *Service) handleInstructionLegs(w http.ResponseWriter, r *http.Request) {
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	legs, err := s.engine.InstructionLegs(instructionID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, legs)
}

func (s *Service) handleAuthorizations(w http.ResponseWriter, r *http.Request) {
	instructionID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid instruction id")
		return
	}
	pending, err := s.engine.InstructionAuthsPending(instructionID)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	resp := map[string]interface{}{
		"auths_pending": pending,
		"received":      s.engine.ReceivedAuthorizations(instructionID),
	}
	if did := r.URL.Query().Get("identity"); did != "" {
		resp["status"] = s.engine.AuthorizationStatusOf(primitives.IdentityID(did), instructionID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleReceiptUsed(w http.ResponseWriter, r *http.Request) {
	uid, err := pathUint(r, "uid")
	if err != nil {
		WriteBadRequest(w, "Invalid receipt uid")
		return
	}
	signer := primitives.AccountID(r.PathValue("signer"))
	writeJSON(w, http.StatusOK, map[string]bool{
		"used": s.engine.ReceiptUsed(signer, uid),
	})
}

func (s *Service) handleVenueAllowed(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUint(r, "id")
	if err != nil {
		WriteBadRequest(w, "Invalid venue id")
		return
	}
	ticker, err := primitives.NewTicker(r.PathValue("ticker"))
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"filtering_enabled": s.engine.VenueFiltering(ticker),
		"allowed":           s.engine.VenueAllowed(ticker, venueID),
	})
}

func (s *Service) handleModuleAccount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"account":  string(s.engine.ModuleAccountID()),
		"identity": string(s.engine.ModuleIdentity()),
	})
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		WriteNotFound(w, "Event journal is not enabled")
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteBadRequest(w, "Invalid limit")
			return
		}
		limit = n
	}
	events, err := s.journal.List(r.Context(), limit)
	if err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/openvenue/settled/pkg/primitives"
	"github.com/openvenue/settled/pkg/settlement"
	"github.com/openvenue/settled/pkg/store"
)

// accountHeader carries the caller's signing account. Resolving it to
// an identity is the engine's job.
const accountHeader = "X-Settled-Account"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20 // 1MB

// Service exposes the settlement engine over HTTP.
type Service struct {
	engine  *settlement.Engine
	journal *store.Journal // optional; enables /events
}

// NewService creates a Service. journal may be nil.
func NewService(engine *settlement.Engine, journal *store.Journal) *Service {
	return &Service{engine: engine, journal: journal}
}

// Routes registers all endpoints on a fresh mux.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /venues", s.handleCreateVenue)
	mux.HandleFunc("POST /venues/{id}/instructions", s.handleAddInstruction)
	mux.HandleFunc("POST /instructions/{id}/authorize", s.handleAuthorize)
	mux.HandleFunc("POST /instructions/{id}/unauthorize", s.handleUnauthorize)
	mux.HandleFunc("POST /instructions/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /instructions/{id}/execute", s.handleExecute)
	mux.HandleFunc("POST /instructions/{id}/legs/{leg}/claim", s.handleClaimReceipt)
	mux.HandleFunc("POST /instructions/{id}/legs/{leg}/unclaim", s.handleUnclaimReceipt)
	mux.HandleFunc("POST /assets/{ticker}/filtering", s.handleSetVenueFiltering)
	mux.HandleFunc("POST /assets/{ticker}/venues/allow", s.handleAllowVenues)
	mux.HandleFunc("POST /assets/{ticker}/venues/disallow", s.handleDisallowVenues)

	mux.HandleFunc("GET /venues/{id}", s.handleVenueInfo)
	mux.HandleFunc("GET /venues/{id}/signers/{account}", s.handleVenueSigner)
	mux.HandleFunc("GET /instructions/{id}", s.handleInstructionDetails)
	mux.HandleFunc("GET /instructions/{id}/legs", s.handleInstructionLegs)
	mux.HandleFunc("GET /instructions/{id}/authorizations", s.handleAuthorizations)
	mux.HandleFunc("GET /receipts/{signer}/{uid}", s.handleReceiptUsed)
	mux.HandleFunc("GET /assets/{ticker}/venues/{id}", s.handleVenueAllowed)
	mux.HandleFunc("GET /module/account", s.handleModuleAccount)
	mux.HandleFunc("GET /events", s.handleEvents)

	return mux
}

// caller extracts the signing account from the request header.
func caller(r *http.Request) (primitives.AccountID, bool) {
	account := r.Header.Get(accountHeader)
	return primitives.AccountID(account), account != ""
}

// pathUint parses a numeric path value.
func pathUint(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.PathValue(name), 10, 64)
}

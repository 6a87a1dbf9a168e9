// Package api is the HTTP surface for the settlement engine. Errors use
// RFC 7807 Problem Details.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openvenue/settled/pkg/custody"
	"github.com/openvenue/settled/pkg/identity"
	"github.com/openvenue/settled/pkg/settlement"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://openvenue.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteForbidden writes a 403 error response.
func WriteForbidden(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Insufficient permissions"
	}
	WriteError(w, http.StatusForbidden, "Forbidden", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteConflict writes a 409 error response (state preconditions).
func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, "Conflict", detail)
}

// WriteTooManyRequests writes a 429 error response with Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 error response.
// The err parameter is logged but NEVER exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}

// WriteEngineError maps a settlement engine error onto the taxonomy:
// referential errors → 404, authorization errors → 403, lifecycle
// preconditions → 409, validation → 400, everything else → 500.
func WriteEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrInvalidVenue),
		errors.Is(err, settlement.ErrUnknownInstruction),
		errors.Is(err, settlement.ErrUnknownLeg):
		WriteNotFound(w, err.Error())
	case errors.Is(err, settlement.ErrUnauthorized),
		errors.Is(err, settlement.ErrUnauthorizedVenue),
		errors.Is(err, settlement.ErrUnauthorizedSigner),
		errors.Is(err, identity.ErrUnknownAccount):
		WriteForbidden(w, err.Error())
	case errors.Is(err, settlement.ErrNoPendingAuth),
		errors.Is(err, settlement.ErrInstructionNotAuthorized),
		errors.Is(err, settlement.ErrInstructionNotPending),
		errors.Is(err, settlement.ErrInstructionNotReady),
		errors.Is(err, settlement.ErrInstructionNotDue),
		errors.Is(err, settlement.ErrLegNotPending),
		errors.Is(err, settlement.ErrReceiptAlreadyClaimed),
		errors.Is(err, settlement.ErrReceiptNotClaimed),
		errors.Is(err, custody.ErrInsufficientBalance),
		errors.Is(err, custody.ErrInsufficientAllowance):
		WriteConflict(w, err.Error())
	case errors.Is(err, settlement.ErrNoLegs),
		errors.Is(err, settlement.ErrInvalidLeg),
		errors.Is(err, settlement.ErrReceiptMismatch),
		errors.Is(err, settlement.ErrInvalidSignature),
		errors.Is(err, custody.ErrInvalidAmount),
		errors.Is(err, custody.ErrUnknownAsset):
		WriteBadRequest(w, err.Error())
	default:
		WriteInternal(w, err)
	}
}

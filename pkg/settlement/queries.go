package settlement

import (
	"github.com/openvenue/settled/pkg/primitives"
)

// Read-only query surface for UIs and reporting. All results are
// copies; mutating them never touches ledger state.

// VenueInfo returns the venue, or ErrInvalidVenue.
func (e *Engine) VenueInfo(venueID uint64) (Venue, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	venue, ok := e.venues[venueID]
	if !ok {
		return Venue{}, ErrInvalidVenue
	}
	out := *venue
	out.Details = append([]byte(nil), venue.Details...)
	out.Instructions = append([]uint64(nil), venue.Instructions...)
	return out, nil
}

// VenueSigners reports whether account is an authorized off-chain
// signer for the venue.
func (e *Engine) VenueSigners(venueID uint64, account primitives.AccountID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.venueSigners[venueID][account]
}

// VenueFiltering reports whether filtering is enabled for the ticker.
func (e *Engine) VenueFiltering(ticker primitives.Ticker) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.venueFiltering[ticker]
}

// VenueAllowed reports whether the venue is on the ticker's allow-list.
func (e *Engine) VenueAllowed(ticker primitives.Ticker, venueID uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.venueAllowList[ticker][venueID]
}

// InstructionDetails returns the instruction, or ErrUnknownInstruction.
func (e *Engine) InstructionDetails(instructionID uint64) (Instruction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	instruction, ok := e.instructions[instructionID]
	if !ok {
		return Instruction{}, ErrUnknownInstruction
	}
	out := *instruction
	if instruction.ValidFrom != nil {
		vf := *instruction.ValidFrom
		out.ValidFrom = &vf
	}
	return out, nil
}

// InstructionLegs returns the instruction's legs in leg-number order.
func (e *Engine) InstructionLegs(instructionID uint64) ([]Leg, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	legs, ok := e.legs[instructionID]
	if !ok {
		return nil, ErrUnknownInstruction
	}
	out := make([]Leg, len(legs))
	for i, leg := range legs {
		out[i] = *leg
	}
	return out, nil
}

// InstructionAuthsPending returns the count of counterparties who have
// not yet authorized.
func (e *Engine) InstructionAuthsPending(instructionID uint64) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.instructions[instructionID]; !ok {
		return 0, ErrUnknownInstruction
	}
	return e.authsPending[instructionID], nil
}

// AuthorizationStatusOf returns the identity's consent state for the
// instruction, AuthorizationUnknown if it is not a counterparty.
func (e *Engine) AuthorizationStatusOf(did primitives.IdentityID, instructionID uint64) AuthorizationStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userAuth(did, instructionID)
}

// ReceivedAuthorizations returns the instruction-side view of consents.
func (e *Engine) ReceivedAuthorizations(instructionID uint64) map[primitives.IdentityID]AuthorizationStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[primitives.IdentityID]AuthorizationStatus, len(e.authsReceived[instructionID]))
	for did, status := range e.authsReceived[instructionID] {
		out[did] = status
	}
	return out
}

// ReceiptUsed reports whether the (signer, uid) pair is claimed.
func (e *Engine) ReceiptUsed(signer primitives.AccountID, uid uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.receiptUsed(signer, uid)
}

package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/primitives"
)

// AddInstruction creates a multi-leg instruction under a venue. Only
// the venue creator may submit, and every filtered asset touched by a
// leg must have the venue on its allow-list. Legs keep their submission
// order as the canonical 0-based numbering; counterparties are the
// sorted, deduplicated union of each leg's from and to identities, each
// starting with a Pending authorization.
func (e *Engine) AddInstruction(ctx context.Context, caller primitives.AccountID, venueID uint64, settlementType SettlementType, validFrom *time.Time, inputs []LegInput) (uint64, error) {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("resolve caller: %w", err)
	}
	if len(inputs) == 0 {
		return 0, ErrNoLegs
	}
	for i, in := range inputs {
		if in.From == "" || in.To == "" {
			return 0, fmt.Errorf("%w: leg %d is missing a counterparty", ErrInvalidLeg, i)
		}
		if in.From == in.To {
			return 0, fmt.Errorf("%w: leg %d transfers to itself", ErrInvalidLeg, i)
		}
		if in.Asset == "" {
			return 0, fmt.Errorf("%w: leg %d is missing an asset", ErrInvalidLeg, i)
		}
		if !in.Amount.IsPositive() {
			return 0, fmt.Errorf("%w: leg %d amount must be positive", ErrInvalidLeg, i)
		}
	}

	e.mu.Lock()
	venue, ok := e.venues[venueID]
	if !ok {
		e.mu.Unlock()
		return 0, ErrInvalidVenue
	}
	if venue.Creator != did {
		e.mu.Unlock()
		return 0, ErrUnauthorized
	}

	counterparties := make([]primitives.IdentityID, 0, len(inputs)*2)
	tickers := make([]primitives.Ticker, 0, len(inputs))
	for _, in := range inputs {
		counterparties = append(counterparties, in.From, in.To)
		tickers = append(tickers, in.Asset)
	}
	tickers = primitives.SortTickers(tickers)
	for _, ticker := range tickers {
		if e.venueFiltering[ticker] && !e.venueAllowList[ticker][venueID] {
			e.mu.Unlock()
			return 0, ErrUnauthorizedVenue
		}
	}
	counterparties = primitives.SortIdentities(counterparties)

	instructionID := e.instructionCounter
	e.instructionCounter++

	legs := make([]*Leg, len(inputs))
	for i, in := range inputs {
		legs[i] = &Leg{
			Number: uint64(i),
			From:   in.From,
			To:     in.To,
			Asset:  in.Asset,
			Amount: in.Amount,
			Status: LegStatus{State: LegExecutionPending},
		}
	}

	instruction := &Instruction{
		ID:             instructionID,
		VenueID:        venueID,
		Status:         InstructionPending,
		SettlementType: settlementType,
		CreatedAt:      e.clock(),
		ValidFrom:      validFrom,
	}

	for _, counterparty := range counterparties {
		e.setAuth(counterparty, instructionID, AuthorizationPending)
	}
	e.legs[instructionID] = legs
	e.instructions[instructionID] = instruction
	e.authsPending[instructionID] = uint64(len(counterparties))
	venue.Instructions = append(venue.Instructions, instructionID)
	e.mu.Unlock()

	legDetail := make([]map[string]interface{}, len(legs))
	for i, leg := range legs {
		legDetail[i] = map[string]interface{}{
			"number": leg.Number,
			"from":   string(leg.From),
			"to":     string(leg.To),
			"asset":  string(leg.Asset),
			"amount": leg.Amount.String(),
		}
	}
	e.emit(ctx, did, audit.ActionInstructionCreated, instructionResource(instructionID), map[string]interface{}{
		"instruction_id": instructionID,
		"venue_id":       venueID,
		"settlement":     string(settlementType.Kind),
		"counterparties": len(counterparties),
		"legs":           legDetail,
	})
	return instructionID, nil
}

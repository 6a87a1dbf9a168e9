package settlement

import (
	"context"
	"fmt"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/primitives"
)

// CreateVenue registers a venue owned by the caller's identity and
// records its authorized off-chain signers. Always succeeds for a
// resolvable caller.
func (e *Engine) CreateVenue(ctx context.Context, caller primitives.AccountID, details []byte, signers []primitives.AccountID) (uint64, error) {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("resolve caller: %w", err)
	}

	e.mu.Lock()
	venueID := e.venueCounter
	e.venueCounter++

	venue := &Venue{
		ID:      venueID,
		Creator: did,
		Details: append([]byte(nil), details...),
	}
	e.venues[venueID] = venue

	registered := make(map[primitives.AccountID]bool, len(signers))
	for _, signer := range signers {
		registered[signer] = true
	}
	e.venueSigners[venueID] = registered
	e.mu.Unlock()

	e.emit(ctx, did, audit.ActionVenueCreated, venueResource(venueID), map[string]interface{}{
		"venue_id": venueID,
		"signers":  len(registered),
	})
	return venueID, nil
}

// SetVenueFiltering toggles venue filtering for a ticker. Only the
// asset owner may change it.
func (e *Engine) SetVenueFiltering(ctx context.Context, caller primitives.AccountID, ticker primitives.Ticker, enabled bool) error {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve caller: %w", err)
	}
	if !e.custody.IsOwner(ctx, ticker, did) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	e.venueFiltering[ticker] = enabled
	e.mu.Unlock()

	e.emit(ctx, did, audit.ActionVenueFilteringSet, tickerResource(ticker), map[string]interface{}{
		"ticker":  string(ticker),
		"enabled": enabled,
	})
	return nil
}

// AllowVenues adds venues to a ticker's allow-list. Only the asset
// owner may change it.
func (e *Engine) AllowVenues(ctx context.Context, caller primitives.AccountID, ticker primitives.Ticker, venueIDs []uint64) error {
	return e.setVenueAllowance(ctx, caller, ticker, venueIDs, true)
}

// DisallowVenues removes venues from a ticker's allow-list.
func (e *Engine) DisallowVenues(ctx context.Context, caller primitives.AccountID, ticker primitives.Ticker, venueIDs []uint64) error {
	return e.setVenueAllowance(ctx, caller, ticker, venueIDs, false)
}

func (e *Engine) setVenueAllowance(ctx context.Context, caller primitives.AccountID, ticker primitives.Ticker, venueIDs []uint64, allowed bool) error {
	did, err := e.resolver.Resolve(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve caller: %w", err)
	}
	if !e.custody.IsOwner(ctx, ticker, did) {
		return ErrUnauthorized
	}

	e.mu.Lock()
	if e.venueAllowList[ticker] == nil {
		e.venueAllowList[ticker] = make(map[uint64]bool)
	}
	for _, venueID := range venueIDs {
		e.venueAllowList[ticker][venueID] = allowed
	}
	e.mu.Unlock()

	action := audit.ActionVenuesAllowed
	if !allowed {
		action = audit.ActionVenuesDisallowed
	}
	e.emit(ctx, did, action, tickerResource(ticker), map[string]interface{}{
		"ticker": string(ticker),
		"venues": venueIDs,
	})
	return nil
}

func venueResource(id uint64) string {
	return fmt.Sprintf("venue/%d", id)
}

func tickerResource(ticker primitives.Ticker) string {
	return fmt.Sprintf("asset/%s", ticker)
}

func instructionResource(id uint64) string {
	return fmt.Sprintf("instruction/%d", id)
}

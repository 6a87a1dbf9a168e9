// Package custody exposes the custody-allowance primitives the
// settlement engine locks funds with. An allowance is an escrow-like
// grant letting a custodian move a bounded amount of an asset on behalf
// of its holder.
package custody

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/primitives"
)

var (
	ErrUnknownAsset          = errors.New("asset is not registered")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientBalance   = errors.New("holder balance is insufficient")
	ErrInsufficientAllowance = errors.New("custody allowance is insufficient")
)

// Gateway defines the custody operations the settlement engine depends
// on. This allows swapping the in-memory Bank for a chain-backed asset
// module.
type Gateway interface {
	// IsOwner reports whether identity owns the ticker's asset.
	IsOwner(ctx context.Context, ticker primitives.Ticker, identity primitives.IdentityID) bool

	// IncreaseAllowance grants custodian the right to move amount of
	// ticker held by holder. Fails if holder's unlocked balance cannot
	// cover the grant.
	IncreaseAllowance(ctx context.Context, holder primitives.IdentityID, ticker primitives.Ticker, custodian primitives.IdentityID, amount decimal.Decimal) error

	// DecreaseAllowance releases a previously granted allowance.
	DecreaseAllowance(ctx context.Context, holder primitives.IdentityID, ticker primitives.Ticker, custodian primitives.IdentityID, amount decimal.Decimal) error

	// Transfer moves amount of ticker from holder to recipient,
	// consuming an equal allowance held by custodian.
	Transfer(ctx context.Context, holder, recipient primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal, custodian primitives.IdentityID) error

	// RevertTransfer undoes a prior Transfer: moves the amount back to
	// holder and restores the consumed allowance.
	RevertTransfer(ctx context.Context, holder, recipient primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal, custodian primitives.IdentityID) error
}

package custody

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openvenue/settled/pkg/primitives"
)

type allowanceKey struct {
	holder    primitives.IdentityID
	ticker    primitives.Ticker
	custodian primitives.IdentityID
}

// Bank is a thread-safe in-memory Gateway. It tracks asset ownership,
// per-identity balances and per-custodian allowances.
type Bank struct {
	mu         sync.RWMutex
	owners     map[primitives.Ticker]primitives.IdentityID
	balances   map[primitives.IdentityID]map[primitives.Ticker]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		owners:     make(map[primitives.Ticker]primitives.IdentityID),
		balances:   make(map[primitives.IdentityID]map[primitives.Ticker]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// RegisterAsset records identity as the owner of ticker.
func (b *Bank) RegisterAsset(ticker primitives.Ticker, owner primitives.IdentityID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owners[ticker] = owner
}

// Credit adds amount of ticker to identity's balance. Used for seeding.
func (b *Bank) Credit(identity primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(identity, ticker, amount)
}

func (b *Bank) credit(identity primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal) {
	if b.balances[identity] == nil {
		b.balances[identity] = make(map[primitives.Ticker]decimal.Decimal)
	}
	b.balances[identity][ticker] = b.balances[identity][ticker].Add(amount)
}

// Balance returns identity's balance of ticker.
func (b *Bank) Balance(identity primitives.IdentityID, ticker primitives.Ticker) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[identity][ticker]
}

// Allowance returns the allowance custodian holds over holder's ticker.
func (b *Bank) Allowance(holder primitives.IdentityID, ticker primitives.Ticker, custodian primitives.IdentityID) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.allowances[allowanceKey{holder, ticker, custodian}]
}

// IsOwner implements Gateway.
func (b *Bank) IsOwner(_ context.Context, ticker primitives.Ticker, identity primitives.IdentityID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	owner, ok := b.owners[ticker]
	return ok && owner == identity
}

// lockedTotal sums every allowance granted over holder's ticker.
// Caller must hold the lock.
func (b *Bank) lockedTotal(holder primitives.IdentityID, ticker primitives.Ticker) decimal.Decimal {
	total := decimal.Zero
	for key, amount := range b.allowances {
		if key.holder == holder && key.ticker == ticker {
			total = total.Add(amount)
		}
	}
	return total
}

// IncreaseAllowance implements Gateway. The grant is refused when the
// holder's balance cannot cover all outstanding allowances plus the new
// amount, so locked funds can never exceed holdings.
func (b *Bank) IncreaseAllowance(_ context.Context, holder primitives.IdentityID, ticker primitives.Ticker, custodian primitives.IdentityID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.owners[ticker]; !ok {
		return ErrUnknownAsset
	}
	if b.balances[holder][ticker].LessThan(b.lockedTotal(holder, ticker).Add(amount)) {
		return ErrInsufficientBalance
	}
	key := allowanceKey{holder, ticker, custodian}
	b.allowances[key] = b.allowances[key].Add(amount)
	return nil
}

// DecreaseAllowance implements Gateway.
func (b *Bank) DecreaseAllowance(_ context.Context, holder primitives.IdentityID, ticker primitives.Ticker, custodian primitives.IdentityID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := allowanceKey{holder, ticker, custodian}
	if b.allowances[key].LessThan(amount) {
		return ErrInsufficientAllowance
	}
	remaining := b.allowances[key].Sub(amount)
	if remaining.IsZero() {
		delete(b.allowances, key)
	} else {
		b.allowances[key] = remaining
	}
	return nil
}

// Transfer implements Gateway. The move consumes an equal allowance, so
// a custodian can never move more than was locked for it.
func (b *Bank) Transfer(_ context.Context, holder, recipient primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal, custodian primitives.IdentityID) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := allowanceKey{holder, ticker, custodian}
	if b.allowances[key].LessThan(amount) {
		return ErrInsufficientAllowance
	}
	if b.balances[holder][ticker].LessThan(amount) {
		return ErrInsufficientBalance
	}
	remaining := b.allowances[key].Sub(amount)
	if remaining.IsZero() {
		delete(b.allowances, key)
	} else {
		b.allowances[key] = remaining
	}
	b.balances[holder][ticker] = b.balances[holder][ticker].Sub(amount)
	b.credit(recipient, ticker, amount)
	return nil
}

// RevertTransfer implements Gateway. It is the exact inverse of
// Transfer and is only valid immediately after one succeeded.
func (b *Bank) RevertTransfer(_ context.Context, holder, recipient primitives.IdentityID, ticker primitives.Ticker, amount decimal.Decimal, custodian primitives.IdentityID) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[recipient][ticker].LessThan(amount) {
		return ErrInsufficientBalance
	}
	b.balances[recipient][ticker] = b.balances[recipient][ticker].Sub(amount)
	b.credit(holder, ticker, amount)
	key := allowanceKey{holder, ticker, custodian}
	b.allowances[key] = b.allowances[key].Add(amount)
	return nil
}

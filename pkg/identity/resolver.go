// Package identity resolves signing accounts to durable on-chain
// identities. The settlement engine only ever sees IdentityIDs; how an
// account maps to one is this package's concern.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/openvenue/settled/pkg/primitives"
)

// ErrUnknownAccount indicates the account has no registered identity.
var ErrUnknownAccount = errors.New("account has no registered identity")

// Resolver maps a signing account to its identity.
// This allows swapping the in-memory directory for an external identity
// service or chain-backed registry.
type Resolver interface {
	Resolve(ctx context.Context, account primitives.AccountID) (primitives.IdentityID, error)
}

// Directory is a thread-safe in-memory Resolver.
type Directory struct {
	mu       sync.RWMutex
	accounts map[primitives.AccountID]primitives.IdentityID
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		accounts: make(map[primitives.AccountID]primitives.IdentityID),
	}
}

// Register binds an account to an identity. Re-registering an account
// overwrites the previous binding; several accounts may share one
// identity.
func (d *Directory) Register(account primitives.AccountID, id primitives.IdentityID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[account] = id
}

// Resolve implements Resolver.
func (d *Directory) Resolve(_ context.Context, account primitives.AccountID) (primitives.IdentityID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.accounts[account]
	if !ok {
		return "", ErrUnknownAccount
	}
	return id, nil
}

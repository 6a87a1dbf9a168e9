package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/custody"
	"github.com/openvenue/settled/pkg/identity"
	"github.com/openvenue/settled/pkg/primitives"
)

// Engine owns all settlement state and exposes the operation surface.
// It is the single writer: every public operation takes the engine lock,
// runs to completion and leaves the ledger in a consistent state before
// the next operation is admitted. Multi-step mutations are sequenced so
// a mid-operation failure never commits a partial primary write.
type Engine struct {
	mu       sync.RWMutex
	resolver identity.Resolver
	custody  custody.Gateway
	events   audit.Logger
	clock    func() time.Time

	moduleIdentity primitives.IdentityID
	moduleAccount  primitives.AccountID

	// venue registry
	venues       map[uint64]*Venue
	venueSigners map[uint64]map[primitives.AccountID]bool
	venueCounter uint64

	// instruction ledger
	instructions       map[uint64]*Instruction
	legs               map[uint64][]*Leg
	instructionCounter uint64

	// authorization tracker; userAuths and authsReceived are two views
	// of the same fact and are written together
	authsPending  map[uint64]uint64
	userAuths     map[primitives.IdentityID]map[uint64]AuthorizationStatus
	authsReceived map[uint64]map[primitives.IdentityID]AuthorizationStatus

	// receipt claim ledger
	receiptsUsed map[primitives.AccountID]map[uint64]bool

	// venue filtering flags
	venueFiltering map[primitives.Ticker]bool
	venueAllowList map[primitives.Ticker]map[uint64]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithEventLogger sets the domain event sink.
func WithEventLogger(l audit.Logger) Option {
	return func(e *Engine) { e.events = l }
}

// NewEngine creates an Engine backed by the given collaborators.
// Counters start at 1 and are never reused.
func NewEngine(resolver identity.Resolver, gateway custody.Gateway, opts ...Option) *Engine {
	e := &Engine{
		resolver:           resolver,
		custody:            gateway,
		events:             audit.NewLogger(),
		clock:              time.Now,
		venues:             make(map[uint64]*Venue),
		venueSigners:       make(map[uint64]map[primitives.AccountID]bool),
		venueCounter:       1,
		instructions:       make(map[uint64]*Instruction),
		legs:               make(map[uint64][]*Leg),
		instructionCounter: 1,
		authsPending:       make(map[uint64]uint64),
		userAuths:          make(map[primitives.IdentityID]map[uint64]AuthorizationStatus),
		authsReceived:      make(map[uint64]map[primitives.IdentityID]AuthorizationStatus),
		receiptsUsed:       make(map[primitives.AccountID]map[uint64]bool),
		venueFiltering:     make(map[primitives.Ticker]bool),
		venueAllowList:     make(map[primitives.Ticker]map[uint64]bool),
	}
	e.moduleIdentity, e.moduleAccount = deriveModuleIDs()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModuleIdentity returns the engine's systemic identity, the custody
// beneficiary while settlement is pending.
func (e *Engine) ModuleIdentity() primitives.IdentityID {
	return e.moduleIdentity
}

// ModuleAccountID returns the deterministic module-level account.
func (e *Engine) ModuleAccountID() primitives.AccountID {
	return e.moduleAccount
}

// emit records a domain event. Event emission is step four of every
// operation; a sink failure must not roll back committed state, so it
// is logged and swallowed.
func (e *Engine) emit(ctx context.Context, actor primitives.IdentityID, action, resource string, metadata map[string]interface{}) {
	if err := e.events.Record(ctx, audit.EventMutation, string(actor), action, resource, metadata); err != nil {
		slog.Warn("event sink failed", "action", action, "resource", resource, "error", err)
	}
}

// setAuth writes both authorization views together so they always
// agree.
func (e *Engine) setAuth(did primitives.IdentityID, instructionID uint64, status AuthorizationStatus) {
	if e.userAuths[did] == nil {
		e.userAuths[did] = make(map[uint64]AuthorizationStatus)
	}
	e.userAuths[did][instructionID] = status
	if e.authsReceived[instructionID] == nil {
		e.authsReceived[instructionID] = make(map[primitives.IdentityID]AuthorizationStatus)
	}
	e.authsReceived[instructionID][did] = status
}

// userAuth reads the caller-side authorization view.
func (e *Engine) userAuth(did primitives.IdentityID, instructionID uint64) AuthorizationStatus {
	if m := e.userAuths[did]; m != nil {
		if s, ok := m[instructionID]; ok {
			return s
		}
	}
	return AuthorizationUnknown
}

func (e *Engine) receiptUsed(signer primitives.AccountID, uid uint64) bool {
	return e.receiptsUsed[signer][uid]
}

func (e *Engine) markReceipt(signer primitives.AccountID, uid uint64, used bool) {
	if e.receiptsUsed[signer] == nil {
		e.receiptsUsed[signer] = make(map[uint64]bool)
	}
	e.receiptsUsed[signer][uid] = used
}

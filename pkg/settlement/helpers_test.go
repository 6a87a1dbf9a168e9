package settlement_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/custody"
	"github.com/openvenue/settled/pkg/identity"
	"github.com/openvenue/settled/pkg/primitives"
	"github.com/openvenue/settled/pkg/settlement"
)

const tick = primitives.Ticker("TICK")

// world wires an engine with an in-memory directory and bank, three
// identities and one asset owned by alice.
type world struct {
	ctx       context.Context
	engine    *settlement.Engine
	directory *identity.Directory
	bank      *custody.Bank
	now       time.Time

	aliceAcct, bobAcct, eveAcct primitives.AccountID
	alice, bob, eve             primitives.IdentityID

	signerAcct primitives.AccountID
	signerKey  ed25519.PrivateKey
}

func newWorld(t *testing.T) *world {
	t.Helper()

	w := &world{
		ctx:       context.Background(),
		directory: identity.NewDirectory(),
		bank:      custody.NewBank(),
		now:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		aliceAcct: "acct-alice",
		bobAcct:   "acct-bob",
		eveAcct:   "acct-eve",
		alice:     "did:alice",
		bob:       "did:bob",
		eve:       "did:eve",
	}
	w.engine = settlement.NewEngine(w.directory, w.bank,
		settlement.WithEventLogger(audit.Discard{}),
		settlement.WithClock(func() time.Time { return w.now }),
	)

	w.directory.Register(w.aliceAcct, w.alice)
	w.directory.Register(w.bobAcct, w.bob)
	w.directory.Register(w.eveAcct, w.eve)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	w.signerAcct = primitives.AccountIDFromKey(pub)
	w.signerKey = priv

	w.bank.RegisterAsset(tick, w.alice)
	w.bank.Credit(w.alice, tick, decimal.NewFromInt(1000))
	w.bank.Credit(w.bob, tick, decimal.NewFromInt(1000))
	return w
}

// venue creates a venue owned by alice with the world's receipt signer
// registered.
func (w *world) venue(t *testing.T) uint64 {
	t.Helper()
	venueID, err := w.engine.CreateVenue(w.ctx, w.aliceAcct, []byte("otc desk"), []primitives.AccountID{w.signerAcct})
	require.NoError(t, err)
	return venueID
}

// instruction creates a SettleOnAuthorization instruction under
// venueID with the given legs.
func (w *world) instruction(t *testing.T, venueID uint64, legs ...settlement.LegInput) uint64 {
	t.Helper()
	instructionID, err := w.engine.AddInstruction(w.ctx, w.aliceAcct, venueID, settlement.OnAuthorization(), nil, legs)
	require.NoError(t, err)
	return instructionID
}

func leg(from, to primitives.IdentityID, amount int64) settlement.LegInput {
	return settlement.LegInput{From: from, To: to, Asset: tick, Amount: decimal.NewFromInt(amount)}
}

func amt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

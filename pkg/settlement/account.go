package settlement

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/openvenue/settled/pkg/primitives"
)

// moduleID is the fixed identifier the module account is derived from.
// Changing it changes every derived account; treat it as part of the
// wire format.
const moduleID = "settled/settlement/v1"

// deriveModuleIDs derives the engine's systemic identity and account
// from moduleID via HKDF-SHA256. The derivation is deterministic, so
// every engine instance agrees on the custody beneficiary.
func deriveModuleIDs() (primitives.IdentityID, primitives.AccountID) {
	r := hkdf.New(sha256.New, []byte(moduleID), []byte("settled-module-kdf"), []byte("settlement-account"))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		// HKDF cannot fail for a request this small.
		panic(err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	sum := sha256.Sum256(pub)
	did := primitives.IdentityID("did:settled:" + hex.EncodeToString(sum[:8]))
	return did, primitives.AccountIDFromKey(pub)
}

package primitives_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvenue/settled/pkg/primitives"
)

func TestAccountIDKeyRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	account := primitives.AccountIDFromKey(pub)
	decoded, err := account.Key()
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)
}

func TestAccountIDKeyRejectsBadEncodings(t *testing.T) {
	_, err := primitives.AccountID("not-hex").Key()
	require.Error(t, err)

	_, err = primitives.AccountID("deadbeef").Key() // valid hex, wrong length
	require.Error(t, err)
}

func TestNewTicker(t *testing.T) {
	ticker, err := primitives.NewTicker("  gold2 ")
	require.NoError(t, err)
	assert.Equal(t, primitives.Ticker("GOLD2"), ticker)

	for _, bad := range []string{"", "   ", "GO LD", "GOLD-X", strings.Repeat("A", primitives.MaxTickerLen+1)} {
		_, err := primitives.NewTicker(bad)
		require.Error(t, err, "ticker %q", bad)
	}
}

func TestSortIdentitiesDeduplicates(t *testing.T) {
	ids := []primitives.IdentityID{"c", "a", "b", "a", "c"}
	assert.Equal(t, []primitives.IdentityID{"a", "b", "c"}, primitives.SortIdentities(ids))
}

func TestSortTickersDeduplicates(t *testing.T) {
	ts := []primitives.Ticker{"TICK", "ACME", "TICK"}
	assert.Equal(t, []primitives.Ticker{"ACME", "TICK"}, primitives.SortTickers(ts))
}

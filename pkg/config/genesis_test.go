package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGenesisProfile(t *testing.T) {
	path := writeProfile(t, `
name: local
identities:
  - account: acct-alice
    identity: did:alice
  - account: acct-bob
    identity: did:bob
assets:
  - ticker: GOLD
    owner: did:alice
    holdings:
      - identity: did:alice
        amount: "1000.5"
      - identity: did:bob
        amount: "250"
`)

	profile, err := LoadGenesisProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "local", profile.Name)
	require.Len(t, profile.Identities, 2)
	assert.Equal(t, "acct-alice", profile.Identities[0].Account)
	require.Len(t, profile.Assets, 1)
	assert.Equal(t, "GOLD", profile.Assets[0].Ticker)
	require.Len(t, profile.Assets[0].Holdings, 2)
	assert.Equal(t, "1000.5", profile.Assets[0].Holdings[0].Amount)
}

func TestLoadGenesisProfileMissingFile(t *testing.T) {
	_, err := LoadGenesisProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadGenesisProfileInvalidYAML(t *testing.T) {
	path := writeProfile(t, "name: [unclosed")
	_, err := LoadGenesisProfile(path)
	require.Error(t, err)
}

func TestLoadGenesisProfileValidation(t *testing.T) {
	cases := map[string]string{
		"identity missing account": `
identities:
  - identity: did:alice
`,
		"asset missing owner": `
assets:
  - ticker: GOLD
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGenesisProfile(writeProfile(t, content))
			require.Error(t, err)
		})
	}
}

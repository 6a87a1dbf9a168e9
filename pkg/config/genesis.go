package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GenesisProfile seeds the identity directory and custody bank at
// startup. Amounts are decimal strings so YAML never goes through
// floating point.
type GenesisProfile struct {
	Name       string           `yaml:"name" json:"name"`
	Identities []GenesisAccount `yaml:"identities" json:"identities"`
	Assets     []GenesisAsset   `yaml:"assets" json:"assets"`
}

// GenesisAccount binds a signing account to an identity.
type GenesisAccount struct {
	Account  string `yaml:"account" json:"account"`
	Identity string `yaml:"identity" json:"identity"`
}

// GenesisAsset registers an asset, its owner and opening balances.
type GenesisAsset struct {
	Ticker   string           `yaml:"ticker" json:"ticker"`
	Owner    string           `yaml:"owner" json:"owner"`
	Holdings []GenesisHolding `yaml:"holdings,omitempty" json:"holdings,omitempty"`
}

// GenesisHolding is one identity's opening balance of an asset.
type GenesisHolding struct {
	Identity string `yaml:"identity" json:"identity"`
	Amount   string `yaml:"amount" json:"amount"`
}

// LoadGenesisProfile reads and validates a genesis profile YAML.
func LoadGenesisProfile(path string) (*GenesisProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load genesis profile %q: %w", path, err)
	}

	var profile GenesisProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse genesis profile %q: %w", path, err)
	}

	for i, acct := range profile.Identities {
		if acct.Account == "" || acct.Identity == "" {
			return nil, fmt.Errorf("genesis identity %d: account and identity are required", i)
		}
	}
	for i, asset := range profile.Assets {
		if asset.Ticker == "" || asset.Owner == "" {
			return nil, fmt.Errorf("genesis asset %d: ticker and owner are required", i)
		}
	}
	return &profile, nil
}

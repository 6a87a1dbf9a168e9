// Package primitives holds the domain identifiers shared by the
// settlement engine and its collaborators: on-chain identities, signing
// accounts, and asset tickers.
package primitives

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// IdentityID is a durable on-chain identity. Callers are resolved to an
// IdentityID before any settlement operation runs.
type IdentityID string

// AccountID is a signing account, encoded as the lowercase hex of an
// ed25519 public key.
type AccountID string

// AccountIDFromKey derives the AccountID for an ed25519 public key.
func AccountIDFromKey(pub ed25519.PublicKey) AccountID {
	return AccountID(hex.EncodeToString(pub))
}

// Key decodes the AccountID back to its ed25519 public key.
func (a AccountID) Key() (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode account %q: %w", a, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("account %q: expected %d key bytes, got %d", a, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Ticker identifies a tokenized asset. Uppercase alphanumeric, at most
// MaxTickerLen bytes.
type Ticker string

// MaxTickerLen bounds ticker length.
const MaxTickerLen = 12

// NewTicker validates and normalizes a ticker symbol.
func NewTicker(s string) (Ticker, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("ticker must not be empty")
	}
	if len(s) > MaxTickerLen {
		return "", fmt.Errorf("ticker %q exceeds %d bytes", s, MaxTickerLen)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("ticker %q contains invalid character %q", s, r)
		}
	}
	return Ticker(s), nil
}

// SortIdentities sorts identities lexicographically in place and drops
// duplicates. The returned slice is the canonical counterparty ordering.
func SortIdentities(ids []IdentityID) []IdentityID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	var prev IdentityID
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out
}

// SortTickers sorts tickers in place and drops duplicates.
func SortTickers(ts []Ticker) []Ticker {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	out := ts[:0]
	var prev Ticker
	for i, t := range ts {
		if i > 0 && t == prev {
			continue
		}
		out = append(out, t)
		prev = t
	}
	return out
}

package types

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58/base58"
)

// FreshnessToken binds a transaction to a recent ledger state (a recent blockhash).
// Only Value is part of the signed message; the other fields describe its validity window.
type FreshnessToken struct {
	Value           [FreshnessTokenLength]byte `json:"-"`
	LastValidHeight uint64                     `json:"lastValidHeight"`
	FetchedAt       time.Time                  `json:"fetchedAt"`
}

func NewFreshnessToken(value string, lastValidHeight uint64, fetchedAt time.Time) (FreshnessToken, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return FreshnessToken{}, fmt.Errorf("invalid base58 freshness token %q: %w", value, err)
	}
	if len(raw) != FreshnessTokenLength {
		return FreshnessToken{}, fmt.Errorf("freshness token must be %d bytes, got %d", FreshnessTokenLength, len(raw))
	}
	t := FreshnessToken{
		LastValidHeight: lastValidHeight,
		FetchedAt:       fetchedAt,
	}
	copy(t.Value[:], raw)
	return t, nil
}

func (t FreshnessToken) String() string {
	return base58.Encode(t.Value[:])
}

func (t FreshnessToken) IsZero() bool {
	return t.Value == [FreshnessTokenLength]byte{}
}

// SameValue reports whether both tokens carry the same blockhash.
func (t FreshnessToken) SameValue(o FreshnessToken) bool {
	return t.Value == o.Value
}

// Expired reports whether more than window has elapsed since the token was fetched.
// A token without a fetch time never expires locally; the ledger remains the authority.
func (t FreshnessToken) Expired(now time.Time, window time.Duration) bool {
	if t.FetchedAt.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(t.FetchedAt) > window
}

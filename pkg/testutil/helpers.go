package testutil

import (
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"golang.org/x/crypto/ed25519"
)

// KeyPairForSeed returns a deterministic 64 byte ed25519 key pair whose seed is seedByte repeated.
func KeyPairForSeed(seedByte byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	return ed25519.NewKeyFromSeed(seed)
}

// CreateTestKeyMaterial loads the deterministic key pair for seedByte
func CreateTestKeyMaterial(t *testing.T, seedByte byte) *keyMaterial.KeyMaterial {
	km, err := keyMaterial.Load(KeyPairForSeed(seedByte))
	if err != nil {
		t.Fatalf("Failed to load test key material: %v", err)
	}
	return km
}

// CreateTestFreshnessToken returns a token fetched now whose value is derived from seed
func CreateTestFreshnessToken(seed byte) types.FreshnessToken {
	tok := types.FreshnessToken{
		LastValidHeight: 150 + uint64(seed),
		FetchedAt:       time.Now(),
	}
	for i := range tok.Value {
		tok.Value[i] = seed ^ byte(i)
	}
	tok.Value[0] = seed | 0x01
	return tok
}

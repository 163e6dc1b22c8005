package keyMaterial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/ed25519"
)

// KeyPairLength is the size of an encoded ed25519 key pair: 32 byte seed followed by the 32 byte public key.
const KeyPairLength = ed25519.PrivateKeySize

var errSecretDestroyed = errors.New("key material has been destroyed")

// KeyMaterial is a signer identity plus, for local signers, the secret key pair bytes.
type KeyMaterial struct {
	identity types.PublicIdentity
	secret   *Secret
}

// Load validates a 64 byte key pair encoding and takes a private copy of it.
func Load(keyPair []byte) (*KeyMaterial, error) {
	if len(keyPair) != KeyPairLength {
		return nil, fmt.Errorf("%w: expected %d byte key pair, got %d bytes", types.ErrMalformedKey, KeyPairLength, len(keyPair))
	}
	derived := ed25519.NewKeyFromSeed(keyPair[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], keyPair[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key half does not match the seed", types.ErrMalformedKey)
	}

	id, err := types.IdentityFromBytes(keyPair[ed25519.SeedSize:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedKey, err)
	}
	return &KeyMaterial{
		identity: id,
		secret:   newSecret(keyPair),
	}, nil
}

// LoadFromString accepts a JSON byte array ("[193,47,...]") or a base58 string.
func LoadFromString(s string) (*KeyMaterial, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty key", types.ErrMalformedKey)
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON byte array", types.ErrMalformedKey)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", types.ErrMalformedKey, i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base58 key", types.ErrMalformedKey)
		}
		raw = decoded
	}
	defer zeroBytes(raw)

	return Load(raw)
}

func LoadFromFile(path string) (*KeyMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	defer zeroBytes(data)
	return LoadFromString(string(data))
}

// PublicOnly describes a signer whose secret lives elsewhere, e.g. behind a wallet agent.
func PublicOnly(id types.PublicIdentity) *KeyMaterial {
	return &KeyMaterial{identity: id}
}

func (km *KeyMaterial) Identity() types.PublicIdentity {
	return km.identity
}

func (km *KeyMaterial) HasSecret() bool {
	return km.secret != nil
}

// Sign produces an ed25519 signature over message with the held secret.
func (km *KeyMaterial) Sign(message []byte) ([]byte, error) {
	if km.secret == nil {
		return nil, fmt.Errorf("%w: no secret held for %s", types.ErrMalformedKey, km.identity)
	}
	var sig []byte
	err := km.secret.Use(func(secret []byte) error {
		sig = ed25519.Sign(ed25519.PrivateKey(secret), message)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Destroy zeroes the secret. Subsequent Sign calls fail.
func (km *KeyMaterial) Destroy() {
	if km.secret != nil {
		km.secret.Zero()
	}
}

func (km *KeyMaterial) String() string {
	return fmt.Sprintf("KeyMaterial{identity: %s, secret: %t}", km.identity, km.secret != nil)
}

func (km *KeyMaterial) GoString() string {
	return km.String()
}

// Verify checks an ed25519 signature by id over message.
func Verify(id types.PublicIdentity, message []byte, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(id[:]), message, sig)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

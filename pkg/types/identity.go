package types

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

const (
	IdentityLength       = 32
	SignatureLength      = 64
	FreshnessTokenLength = 32
)

// PublicIdentity is a signer's 32 byte ed25519 public key. Its text form is base58.
type PublicIdentity [IdentityLength]byte

func IdentityFromBytes(b []byte) (PublicIdentity, error) {
	var id PublicIdentity
	if len(b) != IdentityLength {
		return id, fmt.Errorf("identity must be %d bytes, got %d", IdentityLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func ParseIdentity(s string) (PublicIdentity, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicIdentity{}, fmt.Errorf("invalid base58 identity %q: %w", s, err)
	}
	return IdentityFromBytes(raw)
}

func MustParseIdentity(s string) PublicIdentity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (p PublicIdentity) String() string {
	return base58.Encode(p[:])
}

func (p PublicIdentity) Bytes() []byte {
	out := make([]byte, IdentityLength)
	copy(out, p[:])
	return out
}

func (p PublicIdentity) IsZero() bool {
	return p == PublicIdentity{}
}

// Compare orders identities by their raw bytes.
func (p PublicIdentity) Compare(o PublicIdentity) int {
	return bytes.Compare(p[:], o[:])
}

func (p PublicIdentity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PublicIdentity) UnmarshalText(text []byte) error {
	id, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

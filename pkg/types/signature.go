package types

import (
	"fmt"

	"github.com/mr-tron/base58/base58"
)

// Signature is an ed25519 signature produced by Signer over a transaction's canonical message.
type Signature struct {
	Signer PublicIdentity
	Bytes  [SignatureLength]byte
}

func NewSignature(signer PublicIdentity, sig []byte) (*Signature, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrInvalidSignature, SignatureLength, len(sig))
	}
	s := &Signature{Signer: signer}
	copy(s.Bytes[:], sig)
	return s, nil
}

func (s Signature) String() string {
	return base58.Encode(s.Bytes[:])
}

// TransactionId identifies a submitted transaction: the base58 form of its fee payer signature.
type TransactionId string

func TransactionIdFromSignature(sig Signature) TransactionId {
	return TransactionId(sig.String())
}

func (id TransactionId) String() string {
	return string(id)
}

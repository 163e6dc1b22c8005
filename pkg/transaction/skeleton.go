package transaction

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// Skeleton is a transfer transaction bound to a fee payer and a freshness token, together
// with the signatures collected over its canonical message so far.
//
// Signatures are only valid for the exact message they were produced over: changing
// Instructions, FreshnessToken or FeePayer after signing invalidates all of them.
type Skeleton struct {
	Instructions   []types.TransferInstruction
	FreshnessToken types.FreshnessToken
	FeePayer       types.PublicIdentity

	signatures map[types.PublicIdentity]types.Signature
}

// RequiredSigners returns {fee payer} ∪ {distinct senders}, fee payer first, in the order
// the compiled message lists them.
func (s *Skeleton) RequiredSigners() []types.PublicIdentity {
	signers := []types.PublicIdentity{s.FeePayer}
	seen := map[types.PublicIdentity]bool{s.FeePayer: true}
	for _, ix := range s.Instructions {
		if !seen[ix.From] {
			seen[ix.From] = true
			signers = append(signers, ix.From)
		}
	}
	return signers
}

func (s *Skeleton) IsRequiredSigner(id types.PublicIdentity) bool {
	for _, signer := range s.RequiredSigners() {
		if signer == id {
			return true
		}
	}
	return false
}

func (s *Skeleton) transaction() (*solana.Transaction, error) {
	if len(s.Instructions) == 0 {
		return nil, fmt.Errorf("%w: no instructions", types.ErrInvalidInstruction)
	}
	if s.FreshnessToken.IsZero() {
		return nil, fmt.Errorf("%w: freshness token not set", types.ErrStaleFreshnessToken)
	}
	return newTransaction(s.FeePayer, s.FreshnessToken, s.Instructions)
}

// Message returns the canonical serialization signers sign: account table, freshness
// token and instructions. Signatures are never part of it.
func (s *Skeleton) Message() ([]byte, error) {
	tx, err := s.transaction()
	if err != nil {
		return nil, err
	}
	return tx.Message.MarshalBinary()
}

// VerifySignature checks that sig authenticates the current canonical message for a
// required signer. It has no side effects.
func (s *Skeleton) VerifySignature(sig types.Signature) error {
	if !s.IsRequiredSigner(sig.Signer) {
		return fmt.Errorf("%w: %s is not a required signer", types.ErrInvalidSignature, sig.Signer)
	}
	msg, err := s.Message()
	if err != nil {
		return err
	}
	if !keyMaterial.Verify(sig.Signer, msg, sig.Bytes[:]) {
		return fmt.Errorf("%w: signature from %s does not match the transaction message", types.ErrInvalidSignature, sig.Signer)
	}
	return nil
}

// AddSignature verifies sig and stores it under its signer.
func (s *Skeleton) AddSignature(sig types.Signature) error {
	if err := s.VerifySignature(sig); err != nil {
		return err
	}
	if s.signatures == nil {
		s.signatures = make(map[types.PublicIdentity]types.Signature)
	}
	s.signatures[sig.Signer] = sig
	return nil
}

func (s *Skeleton) Signature(id types.PublicIdentity) (types.Signature, bool) {
	sig, ok := s.signatures[id]
	return sig, ok
}

func (s *Skeleton) Signatures() map[types.PublicIdentity]types.Signature {
	out := make(map[types.PublicIdentity]types.Signature, len(s.signatures))
	for k, v := range s.signatures {
		out[k] = v
	}
	return out
}

func (s *Skeleton) SignatureCount() int {
	return len(s.signatures)
}

func (s *Skeleton) ClearSignatures() {
	s.signatures = nil
}

func (s *Skeleton) MissingSigners() []types.PublicIdentity {
	var missing []types.PublicIdentity
	for _, id := range s.RequiredSigners() {
		if _, ok := s.signatures[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *Skeleton) IsComplete() bool {
	return len(s.MissingSigners()) == 0
}

// VerifyAll re-verifies every required signature against the current message.
func (s *Skeleton) VerifyAll() error {
	if missing := s.MissingSigners(); len(missing) > 0 {
		return fmt.Errorf("%w: missing signature from %s", types.ErrInvalidSignature, missing[0])
	}
	for _, id := range s.RequiredSigners() {
		if err := s.VerifySignature(s.signatures[id]); err != nil {
			return err
		}
	}
	return nil
}

// Wire merges the signatures into the final transaction encoding: a compact list of
// signatures in signer order followed by the message.
func (s *Skeleton) Wire() ([]byte, error) {
	if err := s.VerifyAll(); err != nil {
		return nil, err
	}
	tx, err := s.transaction()
	if err != nil {
		return nil, err
	}
	for _, id := range messageSigners(&tx.Message) {
		sig, ok := s.signatures[id]
		if !ok {
			return nil, fmt.Errorf("%w: missing signature from %s", types.ErrInvalidSignature, id)
		}
		tx.Signatures = append(tx.Signatures, solana.Signature(sig.Bytes))
	}
	return tx.MarshalBinary()
}

// TransactionId is the base58 fee payer signature, known before broadcast.
func (s *Skeleton) TransactionId() (types.TransactionId, error) {
	sig, ok := s.signatures[s.FeePayer]
	if !ok {
		return "", fmt.Errorf("fee payer %s has not signed", s.FeePayer)
	}
	return types.TransactionIdFromSignature(sig), nil
}

// ParseWire decodes a merged transaction. Signatures are attached without verification;
// call VerifyAll on the result.
func ParseWire(data []byte) (*Skeleton, error) {
	tx, err := decodeTransaction(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	signers := messageSigners(&tx.Message)
	if len(signers) == 0 {
		return nil, fmt.Errorf("message requires no signatures")
	}
	if len(tx.Signatures) != len(signers) {
		return nil, fmt.Errorf("header requires %d signatures, found %d", len(signers), len(tx.Signatures))
	}
	instructions, err := decodeTransfers(&tx.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	s := &Skeleton{
		Instructions:   instructions,
		FreshnessToken: types.FreshnessToken{Value: tx.Message.RecentBlockhash},
		FeePayer:       signers[0],
		signatures:     make(map[types.PublicIdentity]types.Signature, len(signers)),
	}
	var empty solana.Signature
	for i, raw := range tx.Signatures {
		if raw == empty {
			continue
		}
		s.signatures[signers[i]] = types.Signature{Signer: signers[i], Bytes: raw}
	}
	return s, nil
}

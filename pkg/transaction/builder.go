package transaction

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build assembles an unsigned skeleton. The freshness token must have been fetched from
// the ledger immediately before; Build performs no network access.
func (b *Builder) Build(
	instructions []types.TransferInstruction,
	feePayer types.PublicIdentity,
	token types.FreshnessToken,
) (*Skeleton, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("%w: at least one instruction is required", types.ErrInvalidInstruction)
	}
	for i, ix := range instructions {
		if err := ix.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	if feePayer.IsZero() {
		return nil, fmt.Errorf("%w: fee payer is empty", types.ErrInvalidInstruction)
	}
	if token.IsZero() {
		return nil, fmt.Errorf("%w: freshness token must be set before building", types.ErrStaleFreshnessToken)
	}

	s := &Skeleton{
		Instructions:   append([]types.TransferInstruction(nil), instructions...),
		FreshnessToken: token,
		FeePayer:       feePayer,
	}

	tx, err := s.transaction()
	if err != nil {
		return nil, err
	}
	numSigners := len(messageSigners(&tx.Message))
	tx.Signatures = make([]solana.Signature, numSigners)
	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	if len(wire) > MaxWireSize {
		return nil, fmt.Errorf("%w: encoded transaction is %d bytes, limit is %d", types.ErrInvalidInstruction, len(wire), MaxWireSize)
	}

	b.logger.Sugar().Debugw("Built transaction skeleton",
		"instructions", len(s.Instructions),
		"fee_payer", feePayer.String(),
		"freshness_token", token.String(),
		"required_signers", numSigners,
	)
	return s, nil
}

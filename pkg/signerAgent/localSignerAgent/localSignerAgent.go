package localSignerAgent

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"go.uber.org/zap"
)

// LocalSignerAgent signs in-process with key material held by this process.
type LocalSignerAgent struct {
	key    *keyMaterial.KeyMaterial
	logger *zap.Logger
}

var _ signerAgent.ISignerAgent = (*LocalSignerAgent)(nil)

func NewLocalSignerAgent(key *keyMaterial.KeyMaterial, logger *zap.Logger) (*LocalSignerAgent, error) {
	if key == nil || !key.HasSecret() {
		return nil, fmt.Errorf("%w: local signer requires a secret key", types.ErrMalformedKey)
	}
	return &LocalSignerAgent{
		key:    key,
		logger: logger,
	}, nil
}

// NewLocalSignerAgentFromBytes loads a 64 byte key pair
func NewLocalSignerAgentFromBytes(keyPair []byte, logger *zap.Logger) (*LocalSignerAgent, error) {
	key, err := keyMaterial.Load(keyPair)
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return NewLocalSignerAgent(key, logger)
}

func (l *LocalSignerAgent) Identity() types.PublicIdentity {
	return l.key.Identity()
}

func (l *LocalSignerAgent) Kind() signerAgent.Kind {
	return signerAgent.KindLocal
}

func (l *LocalSignerAgent) Sign(ctx context.Context, message []byte) (*types.Signature, error) {
	sigBytes, err := l.key.Sign(message)
	if err != nil {
		return nil, err
	}
	l.logger.Sugar().Debugw("Local signer produced signature", "signer", l.key.Identity().String())
	return types.NewSignature(l.key.Identity(), sigBytes)
}

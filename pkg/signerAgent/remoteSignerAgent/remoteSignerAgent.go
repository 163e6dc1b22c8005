package remoteSignerAgent

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/walletAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"go.uber.org/zap"
)

// AccountSource reports the account the wallet session currently exposes.
type AccountSource interface {
	CurrentIdentity() (types.PublicIdentity, bool)
}

// RemoteSignerAgent delegates signing to an out-of-process wallet agent for one account.
type RemoteSignerAgent struct {
	identity types.PublicIdentity
	wallet   walletAgent.IWalletAgent
	accounts AccountSource
	logger   *zap.Logger
}

var _ signerAgent.ISignerAgent = (*RemoteSignerAgent)(nil)

// NewRemoteSignerAgent binds the agent to identity. When accounts is non-nil, signing
// fails once the session no longer exposes identity.
func NewRemoteSignerAgent(identity types.PublicIdentity, wallet walletAgent.IWalletAgent, accounts AccountSource, logger *zap.Logger) *RemoteSignerAgent {
	return &RemoteSignerAgent{
		identity: identity,
		wallet:   wallet,
		accounts: accounts,
		logger:   logger,
	}
}

func (r *RemoteSignerAgent) Identity() types.PublicIdentity {
	return r.identity
}

func (r *RemoteSignerAgent) Kind() signerAgent.Kind {
	return signerAgent.KindRemote
}

func (r *RemoteSignerAgent) checkAccount() error {
	if r.accounts == nil {
		return nil
	}
	current, connected := r.accounts.CurrentIdentity()
	if !connected {
		return fmt.Errorf("%w: wallet is not connected", types.ErrAgentUnavailable)
	}
	if current != r.identity {
		return fmt.Errorf("%w: wallet account changed from %s to %s", types.ErrAgentUnavailable, r.identity, current)
	}
	return nil
}

func (r *RemoteSignerAgent) Sign(ctx context.Context, message []byte) (*types.Signature, error) {
	if err := r.checkAccount(); err != nil {
		return nil, err
	}

	r.logger.Sugar().Infow("Requesting signature from wallet agent", "signer", r.identity.String())
	resp, err := r.wallet.SignMessage(ctx, message)
	if err != nil {
		r.logger.Sugar().Warnw("Wallet agent did not sign", "signer", r.identity.String(), "error", err)
		return nil, err
	}

	// the account may have switched while the prompt was open
	if err := r.checkAccount(); err != nil {
		return nil, err
	}
	if resp.PublicKey != r.identity {
		return nil, fmt.Errorf("%w: wallet signed as %s, expected %s", types.ErrInvalidSignature, resp.PublicKey, r.identity)
	}
	return types.NewSignature(r.identity, resp.Signature)
}

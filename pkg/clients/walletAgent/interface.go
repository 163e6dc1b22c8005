package walletAgent

import (
	"context"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
)

// IWalletAgent defines the interface for interacting with an out-of-process wallet agent.
// Every call may wait on a human, so callers must bound them with a context deadline.
type IWalletAgent interface {
	// Connect asks the agent to expose an account. With trustedOnly the agent must not
	// prompt and fails unless the caller was approved before.
	Connect(ctx context.Context, trustedOnly bool) (types.PublicIdentity, error)

	// Disconnect ends the session with the agent.
	Disconnect(ctx context.Context) error

	// SignMessage requests a signature over message from the connected account.
	// Returns types.ErrUserRejected when the user declines and types.ErrAgentUnavailable
	// when the agent is absent or disconnected.
	SignMessage(ctx context.Context, message []byte) (*types.SignMessageResponse, error)

	// SubscribeEvents streams connect, disconnect and accountChanged notifications into ch.
	SubscribeEvents(ctx context.Context, ch chan<- *types.WalletEvent) (types.Subscription, error)
}

// Compile-time check to ensure Client implements IWalletAgent
var _ IWalletAgent = (*Client)(nil)

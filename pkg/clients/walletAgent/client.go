package walletAgent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client talks JSON-RPC to a wallet agent. Event subscriptions need a bidirectional
// transport (websocket, IPC or in-process); plain HTTP only supports calls.
type Client struct {
	rpcClient *rpc.Client
	logger    *zap.Logger
}

func NewClient(rpcClient *rpc.Client, logger *zap.Logger) *Client {
	return &Client{
		rpcClient: rpcClient,
		logger:    logger,
	}
}

// NewWalletAgentClientFromRemoteSignerConfig dials the agent described by cfg
func NewWalletAgentClientFromRemoteSignerConfig(ctx context.Context, cfg *config.RemoteSignerConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("remote signer config cannot be nil")
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(dialCtx, cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial wallet agent at %s: %w", types.ErrAgentUnavailable, cfg.Url, err)
	}
	logger.Sugar().Infow("Dialed wallet agent", "url", cfg.Url)
	return NewClient(rpcClient, logger), nil
}

func (c *Client) Connect(ctx context.Context, trustedOnly bool) (types.PublicIdentity, error) {
	var resp types.ConnectResponse
	if err := c.rpcClient.CallContext(ctx, &resp, types.WalletMethodConnect, trustedOnly); err != nil {
		return types.PublicIdentity{}, mapWalletError("connect", err)
	}
	if resp.PublicKey.IsZero() {
		return types.PublicIdentity{}, fmt.Errorf("%w: connect returned no public key", types.ErrAgentUnavailable)
	}
	return resp.PublicKey, nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	var result interface{}
	if err := c.rpcClient.CallContext(ctx, &result, types.WalletMethodDisconnect); err != nil {
		return mapWalletError("disconnect", err)
	}
	return nil
}

func (c *Client) SignMessage(ctx context.Context, message []byte) (*types.SignMessageResponse, error) {
	var resp types.SignMessageResponse
	if err := c.rpcClient.CallContext(ctx, &resp, types.WalletMethodSignMessage, hexutil.Bytes(message)); err != nil {
		return nil, mapWalletError("signMessage", err)
	}
	if len(resp.Signature) != types.SignatureLength {
		return nil, fmt.Errorf("%w: agent returned a %d byte signature", types.ErrInvalidSignature, len(resp.Signature))
	}
	return &resp, nil
}

func (c *Client) SubscribeEvents(ctx context.Context, ch chan<- *types.WalletEvent) (types.Subscription, error) {
	sub, err := c.rpcClient.Subscribe(ctx, types.WalletNamespace, ch, types.WalletSubscriptionEvents)
	if err != nil {
		return nil, mapWalletError("subscribe", err)
	}
	return sub, nil
}

func (c *Client) Close() {
	c.rpcClient.Close()
}

// mapWalletError sorts agent failures into the rejection / unavailability taxonomy.
func mapWalletError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("wallet %s cancelled: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: wallet %s timed out: %w", types.ErrAgentUnavailable, op, err)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case types.WalletErrUserRejected:
			return fmt.Errorf("%w: wallet %s: %s", types.ErrUserRejected, op, rpcErr.Error())
		case types.WalletErrUnauthorized, types.WalletErrDisconnected:
			return fmt.Errorf("%w: wallet %s: %s", types.ErrAgentUnavailable, op, rpcErr.Error())
		default:
			return fmt.Errorf("wallet %s failed: %w", op, err)
		}
	}

	// transport failures: the agent is gone or never answered
	return fmt.Errorf("%w: wallet %s: %w", types.ErrAgentUnavailable, op, err)
}

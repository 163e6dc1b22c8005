package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ILedger is the ledger network as seen by the signing engine. Every call is a remote
// round trip; none of them retries on its own.
type ILedger interface {
	// GetFreshnessToken fetches a recent blockhash. Tokens expire after a short window.
	GetFreshnessToken(ctx context.Context) (types.FreshnessToken, error)

	// Broadcast sends a merged transaction once and returns its id.
	Broadcast(ctx context.Context, wire []byte) (types.TransactionId, error)

	// Confirm reports the current status of a broadcast transaction.
	Confirm(ctx context.Context, id types.TransactionId) (*types.TransactionStatusResponse, error)
}

// Compile-time check to ensure Client implements ILedger
var _ ILedger = (*Client)(nil)

type Client struct {
	rpcClient      *rpc.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewClient(rpcClient *rpc.Client, cfg *config.LedgerConfig, logger *zap.Logger) *Client {
	return &Client{
		rpcClient:      rpcClient,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// NewLedgerClientFromConfig dials the ledger RPC endpoint described by cfg
func NewLedgerClientFromConfig(ctx context.Context, cfg *config.LedgerConfig, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.Url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial ledger at %s", cfg.Url)
	}
	logger.Sugar().Infow("Dialed ledger", "url", cfg.Url)
	return NewClient(rpcClient, cfg, logger), nil
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter wait for %s", method)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.rpcClient.CallContext(callCtx, result, method, args...)
}

func (c *Client) GetFreshnessToken(ctx context.Context) (types.FreshnessToken, error) {
	var resp types.FreshnessTokenResponse
	if err := c.call(ctx, &resp, types.LedgerMethodGetFreshnessToken); err != nil {
		return types.FreshnessToken{}, errors.Wrapf(err, "failed to fetch freshness token")
	}
	tok, err := types.NewFreshnessToken(resp.Blockhash, resp.LastValidHeight, c.now())
	if err != nil {
		return types.FreshnessToken{}, errors.Wrapf(err, "ledger returned an invalid freshness token")
	}
	c.logger.Sugar().Debugw("Fetched freshness token",
		"token", tok.String(),
		"last_valid_height", tok.LastValidHeight,
	)
	return tok, nil
}

// Broadcast sends wire once. A JSON-RPC error is a definitive rejection; any other error
// leaves the outcome unknown and is returned unwrapped by the taxonomy so the caller can
// decide to poll instead of resending.
func (c *Client) Broadcast(ctx context.Context, wire []byte) (types.TransactionId, error) {
	var id string
	err := c.call(ctx, &id, types.LedgerMethodSendTransaction, hexutil.Bytes(wire))
	if err == nil {
		return types.TransactionId(id), nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == types.LedgerErrBlockhashNotFound {
			return "", fmt.Errorf("%w: %w: %s", types.ErrSubmissionRejected, types.ErrStaleFreshnessToken, rpcErr.Error())
		}
		return "", fmt.Errorf("%w: %s", types.ErrSubmissionRejected, rpcErr.Error())
	}
	return "", errors.Wrapf(err, "broadcast outcome unknown")
}

func (c *Client) Confirm(ctx context.Context, id types.TransactionId) (*types.TransactionStatusResponse, error) {
	var resp types.TransactionStatusResponse
	if err := c.call(ctx, &resp, types.LedgerMethodGetTransactionStatus, id.String()); err != nil {
		return nil, errors.Wrapf(err, "failed to get status of %s", id)
	}
	return &resp, nil
}

func (c *Client) Close() {
	c.rpcClient.Close()
}

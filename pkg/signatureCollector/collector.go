package signatureCollector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"go.uber.org/zap"
)

// SigningPolicy decides the order signers are asked in and bounds remote signing.
type SigningPolicy struct {
	// Order lists identities to ask first; remaining required signers follow in account order.
	Order []types.PublicIdentity
	// RemoteSignTimeout bounds each remote Sign call. Zero means only ctx bounds it.
	RemoteSignTimeout time.Duration
}

type Collector struct {
	policy  SigningPolicy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCollector(policy SigningPolicy, m *metrics.Metrics, logger *zap.Logger) *Collector {
	return &Collector{
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

// SigningOrder returns required in the order they are asked to sign: identities from
// preferred that are required, then the rest of required in its own order. Each identity
// appears once.
func SigningOrder(preferred, required []types.PublicIdentity) []types.PublicIdentity {
	isRequired := make(map[types.PublicIdentity]bool, len(required))
	for _, id := range required {
		isRequired[id] = true
	}
	seen := make(map[types.PublicIdentity]bool, len(required))
	order := make([]types.PublicIdentity, 0, len(required))
	for _, id := range preferred {
		if isRequired[id] && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range required {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	return order
}

// Collect asks every required signer for a signature over the round's skeleton and
// verifies each one before storing it. Any failure aborts the round and returns the error;
// the caller must start a new round, with a new freshness token, to retry.
func (c *Collector) Collect(ctx context.Context, round *SigningRound, agents []signerAgent.ISignerAgent) error {
	if err := round.transition(RoundPending, RoundSigning); err != nil {
		return err
	}
	if err := c.collect(ctx, round, agents); err != nil {
		round.Abort(err)
		c.logger.Sugar().Warnw("Signing round aborted",
			"round", round.ID,
			"kind", string(types.KindOf(err)),
			"error", err,
		)
		return err
	}
	return round.transition(RoundSigning, RoundComplete)
}

func (c *Collector) collect(ctx context.Context, round *SigningRound, agents []signerAgent.ISignerAgent) error {
	skeleton := round.Skeleton
	required := skeleton.RequiredSigners()

	byIdentity := make(map[types.PublicIdentity]signerAgent.ISignerAgent, len(agents))
	for _, agent := range agents {
		byIdentity[agent.Identity()] = agent
	}
	for _, id := range required {
		if _, ok := byIdentity[id]; !ok {
			return fmt.Errorf("%w: no signer agent for required signer %s", types.ErrAgentUnavailable, id)
		}
	}

	token := skeleton.FreshnessToken
	message, err := skeleton.Message()
	if err != nil {
		return err
	}

	for _, id := range SigningOrder(c.policy.Order, required) {
		if err := ctx.Err(); err != nil {
			return err
		}
		agent := byIdentity[id]
		sig, err := c.sign(ctx, agent, message)
		if err != nil {
			return fmt.Errorf("signer %s (%s): %w", id, agent.Kind(), err)
		}
		if !skeleton.FreshnessToken.SameValue(token) {
			return fmt.Errorf("%w: freshness token changed during signing round", types.ErrStaleFreshnessToken)
		}
		if sig.Signer != id {
			return fmt.Errorf("%w: expected signature from %s, got %s", types.ErrInvalidSignature, id, sig.Signer)
		}
		if err := skeleton.AddSignature(*sig); err != nil {
			return err
		}
		c.metrics.SignaturesCollected.WithLabelValues(string(agent.Kind())).Inc()
		c.logger.Sugar().Infow("Collected signature",
			"round", round.ID,
			"signer", id.String(),
			"kind", agent.Kind(),
		)
	}

	return skeleton.VerifyAll()
}

func (c *Collector) sign(ctx context.Context, agent signerAgent.ISignerAgent, message []byte) (*types.Signature, error) {
	if agent.Kind() != signerAgent.KindRemote || c.policy.RemoteSignTimeout <= 0 {
		return agent.Sign(ctx, message)
	}

	signCtx, cancel := context.WithTimeout(ctx, c.policy.RemoteSignTimeout)
	defer cancel()
	sig, err := agent.Sign(signCtx, message)
	if err != nil && ctx.Err() == nil && errors.Is(signCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, types.ErrAgentUnavailable) {
		return nil, fmt.Errorf("%w: no response within %s: %w", types.ErrAgentUnavailable, c.policy.RemoteSignTimeout, err)
	}
	return sig, err
}

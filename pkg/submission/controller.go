package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/ledger"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signatureCollector"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	OutcomeConfirmed = "confirmed"
	OutcomeRejected  = "rejected"
	OutcomeTimeout   = "timeout"
	OutcomeStale     = "stale"
	OutcomeUnknown   = "unknown"
)

// Controller merges complete rounds into their wire encoding, broadcasts each encoding at
// most once and waits for confirmation.
type Controller struct {
	ledger          ledger.ILedger
	confirmInterval time.Duration
	maxAttempts     int
	freshnessWindow time.Duration
	metrics         *metrics.Metrics
	logger          *zap.Logger
	now             func() time.Time

	mu        sync.Mutex
	submitted map[[blake2b.Size256]byte]types.TransactionId
}

func NewController(
	l ledger.ILedger,
	cfg config.SubmissionConfig,
	freshnessWindow time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		ledger:          l,
		confirmInterval: cfg.ConfirmInterval,
		maxAttempts:     cfg.MaxConfirmAttempts,
		freshnessWindow: freshnessWindow,
		metrics:         m,
		logger:          logger,
		now:             time.Now,
		submitted:       make(map[[blake2b.Size256]byte]types.TransactionId),
	}
}

// Submit broadcasts a complete round and polls until the transaction is confirmed, fails,
// or the attempts run out. It never re-broadcasts: a timeout or an ambiguous transport
// error leaves the caller with the transaction id to check later.
func (c *Controller) Submit(ctx context.Context, round *signatureCollector.SigningRound) (types.TransactionId, error) {
	if state := round.State(); state != signatureCollector.RoundComplete {
		return "", fmt.Errorf("round %s is %s, only complete rounds can be submitted", round.ID, state)
	}
	skeleton := round.Skeleton

	wire, err := skeleton.Wire()
	if err != nil {
		round.Abort(err)
		return "", err
	}
	localId, err := skeleton.TransactionId()
	if err != nil {
		round.Abort(err)
		return "", err
	}

	if skeleton.FreshnessToken.Expired(c.now(), c.freshnessWindow) {
		err := fmt.Errorf("%w: token %s fetched at %s is older than %s",
			types.ErrStaleFreshnessToken,
			skeleton.FreshnessToken,
			skeleton.FreshnessToken.FetchedAt.Format(time.RFC3339),
			c.freshnessWindow,
		)
		round.Abort(err)
		c.metrics.Submissions.WithLabelValues(OutcomeStale).Inc()
		return "", err
	}

	digest := blake2b.Sum256(wire)
	c.mu.Lock()
	if prev, ok := c.submitted[digest]; ok {
		c.mu.Unlock()
		return prev, fmt.Errorf("%w: %s", types.ErrAlreadySubmitted, prev)
	}
	c.submitted[digest] = localId
	c.mu.Unlock()

	if err := round.MarkSubmitted(); err != nil {
		return "", err
	}

	c.logger.Sugar().Infow("Broadcasting transaction",
		"round", round.ID,
		"transaction_id", localId.String(),
		"size", len(wire),
	)
	id, err := c.ledger.Broadcast(ctx, wire)
	switch {
	case err == nil:
		if id != localId {
			c.logger.Sugar().Warnw("Ledger returned a different transaction id than derived locally",
				"ledger_id", id.String(),
				"local_id", localId.String(),
			)
		}
	case ctx.Err() != nil:
		c.metrics.Submissions.WithLabelValues(OutcomeUnknown).Inc()
		return localId, fmt.Errorf("broadcast of %s interrupted: %w", localId, ctx.Err())
	case errors.Is(err, types.ErrSubmissionRejected):
		c.metrics.Submissions.WithLabelValues(OutcomeRejected).Inc()
		return "", err
	default:
		c.logger.Sugar().Warnw("Broadcast outcome unknown, polling for the locally derived id",
			"transaction_id", localId.String(),
			"error", err,
		)
		id = localId
	}

	return c.awaitConfirmation(ctx, id)
}

func (c *Controller) awaitConfirmation(ctx context.Context, id types.TransactionId) (types.TransactionId, error) {
	var lastStatus types.ConfirmationStatus
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.metrics.ConfirmPolls.Inc()
		status, err := c.ledger.Confirm(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return id, ctx.Err()
			}
			c.logger.Sugar().Warnw("Failed to poll transaction status",
				"transaction_id", id.String(),
				"attempt", attempt,
				"error", err,
			)
		case status.Status.Landed():
			c.metrics.Submissions.WithLabelValues(OutcomeConfirmed).Inc()
			c.logger.Sugar().Infow("Transaction confirmed",
				"transaction_id", id.String(),
				"status", status.Status,
				"attempts", attempt,
			)
			return id, nil
		case status.Status == types.ConfirmationStatusFailed:
			c.metrics.Submissions.WithLabelValues(OutcomeRejected).Inc()
			return id, fmt.Errorf("%w: transaction %s failed: %s", types.ErrSubmissionRejected, id, status.Err)
		default:
			lastStatus = status.Status
		}

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-time.After(c.confirmInterval):
		case <-ctx.Done():
			return id, ctx.Err()
		}
	}

	c.metrics.Submissions.WithLabelValues(OutcomeTimeout).Inc()
	return id, fmt.Errorf("%w: transaction %s not confirmed after %d attempts (last status %q)",
		types.ErrConfirmationTimeout, id, c.maxAttempts, lastStatus)
}

package transfer

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/actionLog"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/ledger"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/walletAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signatureCollector"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent/remoteSignerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/submission"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transaction"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/walletSession"
	"go.uber.org/zap"
)

// Config wires a Coordinator. LocalSigners are further in-process agents addressed by name
// next to LocalAgent ("local").
type Config struct {
	Ledger       ledger.ILedger
	LocalAgent   signerAgent.ISignerAgent
	LocalSigners map[config.SignerRole]signerAgent.ISignerAgent
	Wallet       walletAgent.IWalletAgent
	Session      *walletSession.Session
	Submitter    *submission.Controller
	Signing      config.SigningConfig
	Actions      *actionLog.ActionLog
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Coordinator runs one transfer as a single user action: fetch a freshness token, build,
// collect every signature, submit and wait for confirmation.
type Coordinator struct {
	ledger    ledger.ILedger
	locals    map[config.SignerRole]signerAgent.ISignerAgent
	wallet    walletAgent.IWalletAgent
	session   *walletSession.Session
	builder   *transaction.Builder
	submitter *submission.Controller
	signing   config.SigningConfig
	actions   *actionLog.ActionLog
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewCoordinator(cfg Config) *Coordinator {
	locals := make(map[config.SignerRole]signerAgent.ISignerAgent, len(cfg.LocalSigners)+1)
	for name, agent := range cfg.LocalSigners {
		locals[name] = agent
	}
	locals[config.SignerRoleLocal] = cfg.LocalAgent

	return &Coordinator{
		ledger:    cfg.Ledger,
		locals:    locals,
		wallet:    cfg.Wallet,
		session:   cfg.Session,
		builder:   transaction.NewBuilder(cfg.Logger),
		submitter: cfg.Submitter,
		signing:   cfg.Signing,
		actions:   cfg.Actions,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// InitiateTransfer executes req in a fresh signing round. On failure the round is discarded
// and the error is recorded in the action log; retrying calls InitiateTransfer again, which
// fetches a new freshness token. A confirmation timeout returns the transaction id together
// with the error.
func (c *Coordinator) InitiateTransfer(ctx context.Context, req *TransferRequest) (types.TransactionId, error) {
	start := time.Now()
	c.metrics.RoundsStarted.Inc()

	id, err := c.initiate(ctx, req)
	c.metrics.RoundDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := types.KindOf(err)
		c.metrics.RoundsAborted.WithLabelValues(string(kind)).Inc()
		c.actions.AppendError(fmt.Errorf("initiateTransfer: %w", err))
		c.logger.Sugar().Errorw("Transfer failed", "kind", kind, "error", err)
		return id, err
	}
	c.actions.Appendf("Transaction %s confirmed", id)
	return id, nil
}

func (c *Coordinator) resolver() *resolver {
	r := &resolver{locals: make(map[config.SignerRole]types.PublicIdentity, len(c.locals))}
	for name, agent := range c.locals {
		r.locals[name] = agent.Identity()
	}
	if c.session != nil {
		r.remote, r.remoteConnected = c.session.CurrentIdentity()
	}
	return r
}

func (c *Coordinator) initiate(ctx context.Context, req *TransferRequest) (types.TransactionId, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	r := c.resolver()
	instructions, err := r.instructions(req.Instructions)
	if err != nil {
		return "", err
	}
	for i, ix := range instructions {
		if err := ix.Validate(); err != nil {
			return "", fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	var feePayer types.PublicIdentity
	if req.FeePayer != "" {
		feePayer, err = r.party(req.FeePayer)
	} else {
		feePayer, err = r.role(c.signing.FeePayer)
	}
	if err != nil {
		return "", fmt.Errorf("fee payer: %w", err)
	}
	for _, ix := range instructions {
		c.actions.Appendf("Transfer %d from %s to %s", ix.Amount, ix.From, ix.To)
	}

	token, err := c.ledger.GetFreshnessToken(ctx)
	if err != nil {
		return "", err
	}
	skeleton, err := c.builder.Build(instructions, feePayer, token)
	if err != nil {
		return "", err
	}
	round := signatureCollector.NewSigningRound(skeleton)
	c.logger.Sugar().Infow("Started signing round",
		"round", round.ID,
		"fee_payer", feePayer.String(),
		"freshness_token", token.String(),
		"instructions", len(instructions),
	)

	agents := c.localAgents()
	if r.remoteConnected && !r.isLocal(r.remote) {
		agents = append(agents, remoteSignerAgent.NewRemoteSignerAgent(r.remote, c.wallet, c.session, c.logger))
	}

	collector := signatureCollector.NewCollector(signatureCollector.SigningPolicy{
		Order:             r.order(c.signing.SignerOrder),
		RemoteSignTimeout: c.signing.RemoteSignTimeout,
	}, c.metrics, c.logger)
	if err := collector.Collect(ctx, round, agents); err != nil {
		return "", err
	}
	for _, id := range skeleton.RequiredSigners() {
		c.actions.Appendf("Signature collected from %s", id)
	}

	if localId, err := skeleton.TransactionId(); err == nil {
		c.actions.Appendf("Submitting transaction %s, awaiting confirmation", localId)
	}
	return c.submitter.Submit(ctx, round)
}

// localAgents returns the in-process agents sorted by role name.
func (c *Coordinator) localAgents() []signerAgent.ISignerAgent {
	agents := make([]signerAgent.ISignerAgent, 0, len(c.locals))
	for _, name := range slices.Sorted(maps.Keys(c.locals)) {
		agents = append(agents, c.locals[name])
	}
	return agents
}

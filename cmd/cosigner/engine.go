package main

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/actionLog"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/ledger"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/clients/walletAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/signerAgent/localSignerAgent"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/submission"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transfer"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/walletSession"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const actionLogLimit = 1000

// engine is the fully wired cosigner shared by every command.
type engine struct {
	keys        []*keyMaterial.KeyMaterial
	ledger      *ledger.Client
	wallet      *walletAgent.Client
	session     *walletSession.Session
	actions     *actionLog.ActionLog
	metrics     *metrics.Metrics
	coordinator *transfer.Coordinator
}

func newEngine(ctx context.Context, cfg *config.CosignerConfig, l *zap.Logger) (*engine, error) {
	var key *keyMaterial.KeyMaterial
	var err error
	if cfg.LocalKeyFile != "" {
		key, err = keyMaterial.LoadFromFile(cfg.LocalKeyFile)
	} else {
		key, err = keyMaterial.LoadFromString(cfg.LocalKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load local key: %w", err)
	}

	local, err := localSignerAgent.NewLocalSignerAgent(key, l)
	if err != nil {
		return nil, err
	}
	keys := []*keyMaterial.KeyMaterial{key}
	destroyKeys := func() {
		for _, k := range keys {
			k.Destroy()
		}
	}

	named := make(map[config.SignerRole]signerAgent.ISignerAgent, len(cfg.LocalSigners))
	for _, ls := range cfg.LocalSigners {
		var k *keyMaterial.KeyMaterial
		if ls.KeyFile != "" {
			k, err = keyMaterial.LoadFromFile(ls.KeyFile)
		} else {
			k, err = keyMaterial.LoadFromString(ls.Key)
		}
		if err != nil {
			destroyKeys()
			return nil, fmt.Errorf("failed to load key for local signer %s: %w", ls.Name, err)
		}
		keys = append(keys, k)
		agent, err := localSignerAgent.NewLocalSignerAgent(k, l)
		if err != nil {
			destroyKeys()
			return nil, err
		}
		named[ls.Name] = agent
		l.Sugar().Infow("Loaded local signer", "name", ls.Name, "identity", k.Identity().String())
	}

	ledgerClient, err := ledger.NewLedgerClientFromConfig(ctx, &cfg.Ledger, l)
	if err != nil {
		destroyKeys()
		return nil, err
	}
	walletClient, err := walletAgent.NewWalletAgentClientFromRemoteSignerConfig(ctx, &cfg.WalletAgent, l)
	if err != nil {
		ledgerClient.Close()
		destroyKeys()
		return nil, err
	}

	actions := actionLog.NewActionLog(actionLogLimit, l)
	m := metrics.NewMetrics()
	session := walletSession.NewSession(walletClient, actions, cfg.WalletAgent.ConnectTimeout, l)
	submitter := submission.NewController(ledgerClient, cfg.Submission, cfg.Signing.FreshnessWindow, m, l)

	coordinator := transfer.NewCoordinator(transfer.Config{
		Ledger:       ledgerClient,
		LocalAgent:   local,
		LocalSigners: named,
		Wallet:       walletClient,
		Session:      session,
		Submitter:    submitter,
		Signing:      cfg.Signing,
		Actions:      actions,
		Metrics:      m,
		Logger:       l,
	})

	l.Sugar().Infow("Cosigner engine ready",
		"local_identity", key.Identity().String(),
		"ledger", cfg.Ledger.Url,
		"wallet_agent", cfg.WalletAgent.Url,
		"fee_payer", cfg.Signing.FeePayer,
		"signer_order", cfg.Signing.SignerOrder,
	)

	return &engine{
		keys:        keys,
		ledger:      ledgerClient,
		wallet:      walletClient,
		session:     session,
		actions:     actions,
		metrics:     m,
		coordinator: coordinator,
	}, nil
}

func (e *engine) Close() {
	e.wallet.Close()
	e.ledger.Close()
	for _, k := range e.keys {
		k.Destroy()
	}
}

// parseCosignerConfig overlays flags on the config file (if any) and the defaults.
func parseCosignerConfig(c *cli.Context) (*config.CosignerConfig, error) {
	cfg := config.DefaultCosignerConfig()
	if path := c.String("config-file"); path != "" {
		var err error
		cfg, err = config.LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if c.IsSet("cluster") {
		cfg.Cluster = config.ClusterName(c.String("cluster"))
	}
	if c.IsSet("ledger-url") {
		cfg.Ledger.Url = c.String("ledger-url")
	}
	if c.IsSet("wallet-agent-url") {
		cfg.WalletAgent.Url = c.String("wallet-agent-url")
	}
	if c.IsSet("local-key") {
		cfg.LocalKey = c.String("local-key")
	}
	if c.IsSet("local-key-file") {
		cfg.LocalKeyFile = c.String("local-key-file")
	}
	if c.IsSet("local-signer") {
		cfg.LocalSigners = nil
		for _, v := range c.StringSlice("local-signer") {
			ls, err := config.ParseLocalSigner(v)
			if err != nil {
				return nil, err
			}
			cfg.LocalSigners = append(cfg.LocalSigners, ls)
		}
	}
	if c.IsSet("fee-payer") {
		role, err := config.ParseSignerRole(c.String("fee-payer"))
		if err != nil {
			return nil, err
		}
		cfg.Signing.FeePayer = role
	}
	if c.IsSet("signer-order") {
		order, err := config.ParseSignerOrder(c.String("signer-order"))
		if err != nil {
			return nil, err
		}
		cfg.Signing.SignerOrder = order
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("verbose") {
		cfg.Debug = c.Bool("verbose")
	}
	return cfg, nil
}

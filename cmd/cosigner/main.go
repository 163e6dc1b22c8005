package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/server"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transfer"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "cosigner",
		Usage: "Dual-signer transfer co-signing engine",
		Description: `Builds native transfer transactions that need signatures from two parties: a local
signer holding its key in-process and a remote, human-mediated wallet agent.

Every transfer is one signing round:
- fetch a fresh blockhash from the ledger
- collect and verify every required signature
- broadcast exactly once and wait for confirmation`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-file",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file; flags override its values",
				EnvVars: []string{config.EnvCosignerConfigFile},
			},
			&cli.StringFlag{
				Name:    "cluster",
				Usage:   fmt.Sprintf("Ledger cluster: %s", config.GetSupportedClustersString()),
				Value:   string(config.ClusterName_Devnet),
				EnvVars: []string{config.EnvCosignerCluster},
			},
			&cli.StringFlag{
				Name:    "ledger-url",
				Aliases: []string{"rpc"},
				Usage:   "Ledger JSON-RPC endpoint, overrides the cluster default",
				EnvVars: []string{config.EnvCosignerLedgerURL},
			},
			&cli.StringFlag{
				Name:    "wallet-agent-url",
				Usage:   "Wallet agent JSON-RPC endpoint (ws:// or ipc path)",
				Value:   config.DefaultWalletAgentUrl,
				EnvVars: []string{config.EnvCosignerWalletAgentURL},
			},
			&cli.StringFlag{
				Name:    "local-key",
				Usage:   "Local signer key pair as a JSON byte array or base58 string",
				EnvVars: []string{config.EnvCosignerLocalKey},
			},
			&cli.StringFlag{
				Name:    "local-key-file",
				Usage:   "File holding the local signer key pair",
				EnvVars: []string{config.EnvCosignerLocalKeyFile},
			},
			&cli.StringSliceFlag{
				Name:    "local-signer",
				Usage:   "Additional in-process signer as name=keyFile, addressable by name (repeatable)",
				EnvVars: []string{config.EnvCosignerLocalSigners},
			},
			&cli.StringFlag{
				Name:    "fee-payer",
				Usage:   "Signer role paying fees: local, remote or a local signer name",
				Value:   string(config.SignerRoleRemote),
				EnvVars: []string{config.EnvCosignerFeePayer},
			},
			&cli.StringFlag{
				Name:    "signer-order",
				Usage:   "Comma separated roles asked to sign first",
				Value:   "remote,local",
				EnvVars: []string{config.EnvCosignerSignerOrder},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvCosignerPort},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvCosignerVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP surface and keep the wallet session alive",
				Action: runServe,
			},
			{
				Name:  "transfer",
				Usage: "Run one transfer and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "from",
						Usage: "Sender: local, remote or a base58 public key",
						Value: string(config.SignerRoleLocal),
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Receiver: local, remote or a base58 public key",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "amount",
						Usage:    "Amount in base units",
						Required: true,
					},
				},
				Action: runTransfer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func setup(c *cli.Context) (*config.CosignerConfig, *zap.Logger, error) {
	cfg, err := parseCosignerConfig(c)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, l, nil
}

func runServe(c *cli.Context) error {
	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer e.Close()

	go func() {
		if err := e.session.Run(ctx); err != nil {
			l.Sugar().Warnw("Wallet session stopped", "error", err)
		}
	}()
	if cfg.WalletAgent.EagerConnect {
		e.session.EagerConnect(ctx)
	}

	srv := server.NewServer(e.coordinator, e.session, e.actions, e.metrics, cfg.Port, l)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	l.Sugar().Infow("Cosigner running", "port", cfg.Port)
	l.Sugar().Infow("Available endpoints",
		"transfer", "POST /transfer",
		"logs", "GET /logs",
		"wallet", "GET /wallet, POST /wallet/connect, POST /wallet/disconnect",
		"metrics", "GET /metrics")
	l.Sugar().Info("Press Ctrl+C to stop")

	<-ctx.Done()
	l.Sugar().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

type transferResult struct {
	TransactionId types.TransactionId `json:"transactionId,omitempty"`
	ErrorKind     types.ErrorKind     `json:"errorKind,omitempty"`
	Error         string              `json:"error,omitempty"`
	Log           []string            `json:"log"`
}

func runTransfer(c *cli.Context) error {
	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer e.Close()

	req := &transfer.TransferRequest{
		Instructions: []transfer.InstructionRequest{{
			From:   transfer.Party(c.String("from")),
			To:     transfer.Party(c.String("to")),
			Amount: c.Uint64("amount"),
		}},
	}
	if _, err := e.session.Connect(ctx, !needsRemote(cfg, req)); err != nil {
		l.Sugar().Debugw("Wallet not connected", "error", err)
	}

	id, err := e.coordinator.InitiateTransfer(ctx, req)
	result := &transferResult{
		TransactionId: id,
		ErrorKind:     types.KindOf(err),
		Log:           e.actions.Lines(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	out, mErr := json.MarshalIndent(result, "", "  ")
	if mErr != nil {
		return mErr
	}
	fmt.Println(string(out))
	return err
}

func needsRemote(cfg *config.CosignerConfig, req *transfer.TransferRequest) bool {
	if cfg.Signing.FeePayer == config.SignerRoleRemote {
		return true
	}
	for _, ix := range req.Instructions {
		if ix.From == transfer.Party(config.SignerRoleRemote) || ix.To == transfer.Party(config.SignerRoleRemote) {
			return true
		}
	}
	return false
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/actionLog"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/metrics"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transfer"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/walletSession"
	"go.uber.org/zap"
)

/*
Server exposes the cosigner to an operator over HTTP.

  POST /transfer:
    - Request: { instructions: [{ from, to, amount }], feePayer? }
    - Parties are "local", "remote" or a base58 public key
    - Runs one signing round end to end and returns { transactionId } or
      { transactionId?, error, errorKind }

  GET /logs:
    - Returns the action log lines, oldest first

  GET /wallet, POST /wallet/connect, POST /wallet/disconnect:
    - Inspect and drive the remote wallet session

  GET /metrics:
    - Prometheus exposition
*/

// TransferInitiator runs one transfer as a single user action.
type TransferInitiator interface {
	InitiateTransfer(ctx context.Context, req *transfer.TransferRequest) (types.TransactionId, error)
}

type Server struct {
	transfers  TransferInitiator
	session    *walletSession.Session
	actions    *actionLog.ActionLog
	metrics    *metrics.Metrics
	logger     *zap.Logger
	httpServer *http.Server
}

func NewServer(
	transfers TransferInitiator,
	session *walletSession.Session,
	actions *actionLog.ActionLog,
	m *metrics.Metrics,
	port int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		transfers: transfers,
		session:   session,
		actions:   actions,
		metrics:   m,
		logger:    logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/transfer", s.handleTransfer)
	mux.HandleFunc("/logs", s.handleLogs)

	// wallet session endpoints
	mux.HandleFunc("/wallet", s.handleWalletStatus)
	mux.HandleFunc("/wallet/connect", s.handleWalletConnect)
	mux.HandleFunc("/wallet/disconnect", s.handleWalletDisconnect)

	mux.Handle("/metrics", m.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

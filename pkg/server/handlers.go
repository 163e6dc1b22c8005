package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/actionLog"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transfer"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
)

type TransferResponse struct {
	TransactionId types.TransactionId `json:"transactionId,omitempty"`
	Error         string              `json:"error,omitempty"`
	ErrorKind     types.ErrorKind     `json:"errorKind,omitempty"`
}

type LogsResponse struct {
	Entries []actionLog.Entry `json:"entries"`
}

type WalletResponse struct {
	State     string               `json:"state"`
	PublicKey *types.PublicIdentity `json:"publicKey,omitempty"`
	Error     string               `json:"error,omitempty"`
}

func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.ErrorKindInvalidInstruction, types.ErrorKindMalformedKey:
		return http.StatusBadRequest
	case types.ErrorKindUserRejected:
		return http.StatusForbidden
	case types.ErrorKindStaleFreshnessToken, types.ErrorKindAlreadySubmitted:
		return http.StatusConflict
	case types.ErrorKindSubmissionRejected:
		return http.StatusUnprocessableEntity
	case types.ErrorKindAgentUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrorKindConfirmationTimeout:
		return http.StatusGatewayTimeout
	case types.ErrorKindInvalidSignature:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "error", err)
	}
}

// handleTransfer runs one transfer and reports the tagged result
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transfer.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	id, err := s.transfers.InitiateTransfer(r.Context(), &req)
	if err != nil {
		kind := types.KindOf(err)
		s.writeJSON(w, statusForKind(kind), &TransferResponse{
			TransactionId: id,
			Error:         err.Error(),
			ErrorKind:     kind,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, &TransferResponse{TransactionId: id})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, &LogsResponse{Entries: s.actions.Entries()})
}

func (s *Server) walletResponse() *WalletResponse {
	resp := &WalletResponse{State: s.session.State().String()}
	if id, ok := s.session.CurrentIdentity(); ok {
		resp.PublicKey = &id
	}
	return resp
}

func (s *Server) handleWalletStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.walletResponse())
}

func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.session.Connect(r.Context(), false); err != nil {
		s.actions.AppendError(fmt.Errorf("connect: %w", err))
		resp := s.walletResponse()
		resp.Error = err.Error()
		s.writeJSON(w, statusForKind(types.KindOf(err)), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, s.walletResponse())
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.session.Disconnect(r.Context()); err != nil {
		s.actions.AppendError(fmt.Errorf("disconnect: %w", err))
		resp := s.walletResponse()
		resp.Error = err.Error()
		s.writeJSON(w, statusForKind(types.KindOf(err)), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, s.walletResponse())
}

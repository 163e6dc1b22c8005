package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/mr-tron/base58/base58"
)

// MockLedger is an in-memory ledger collaborator. Every GetFreshnessToken call issues a
// new token; broadcasts are recorded; Confirm replays a scripted status sequence.
type MockLedger struct {
	mu sync.Mutex

	tokenSeq     byte
	issuedTokens []types.FreshnessToken
	broadcasts   [][]byte
	confirmCalls int

	// TokenErr fails GetFreshnessToken.
	TokenErr error
	// BroadcastErr is returned by Broadcast after the attempt has been recorded.
	BroadcastErr error
	// ConfirmStatuses is replayed one per Confirm call; the last entry repeats.
	ConfirmStatuses []types.ConfirmationStatus
	// ConfirmErr fails every Confirm call.
	ConfirmErr error
	// TokenAge backdates FetchedAt on issued tokens.
	TokenAge time.Duration
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		ConfirmStatuses: []types.ConfirmationStatus{types.ConfirmationStatusConfirmed},
	}
}

func (m *MockLedger) GetFreshnessToken(ctx context.Context) (types.FreshnessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.TokenErr != nil {
		return types.FreshnessToken{}, m.TokenErr
	}
	m.tokenSeq++
	tok := CreateTestFreshnessToken(m.tokenSeq)
	tok.FetchedAt = time.Now().Add(-m.TokenAge)
	m.issuedTokens = append(m.issuedTokens, tok)
	return tok, nil
}

func (m *MockLedger) Broadcast(ctx context.Context, wire []byte) (types.TransactionId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.broadcasts = append(m.broadcasts, append([]byte(nil), wire...))
	if m.BroadcastErr != nil {
		return "", m.BroadcastErr
	}
	return TransactionIdFromWire(wire)
}

func (m *MockLedger) Confirm(ctx context.Context, id types.TransactionId) (*types.TransactionStatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.confirmCalls++
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	if len(m.ConfirmStatuses) == 0 {
		return &types.TransactionStatusResponse{Status: types.ConfirmationStatusUnknown}, nil
	}
	idx := m.confirmCalls - 1
	if idx >= len(m.ConfirmStatuses) {
		idx = len(m.ConfirmStatuses) - 1
	}
	resp := &types.TransactionStatusResponse{Status: m.ConfirmStatuses[idx]}
	if resp.Status == types.ConfirmationStatusFailed {
		resp.Err = "InsufficientFundsForRent"
	}
	return resp, nil
}

func (m *MockLedger) BroadcastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.broadcasts)
}

func (m *MockLedger) Broadcasts() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.broadcasts))
	copy(out, m.broadcasts)
	return out
}

func (m *MockLedger) ConfirmCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmCalls
}

func (m *MockLedger) IssuedTokens() []types.FreshnessToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.FreshnessToken, len(m.issuedTokens))
	copy(out, m.issuedTokens)
	return out
}

// TransactionIdFromWire reads the first (fee payer) signature of a merged transaction.
func TransactionIdFromWire(wire []byte) (types.TransactionId, error) {
	if len(wire) < 1+types.SignatureLength || wire[0] == 0 || wire[0]&0x80 != 0 {
		return "", fmt.Errorf("malformed transaction encoding")
	}
	return types.TransactionId(base58.Encode(wire[1 : 1+types.SignatureLength])), nil
}

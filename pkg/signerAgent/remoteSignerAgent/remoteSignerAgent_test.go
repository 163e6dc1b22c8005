package remoteSignerAgent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/testutil"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedAccount struct {
	mu        sync.Mutex
	id        types.PublicIdentity
	connected bool
}

func (f *fixedAccount) CurrentIdentity() (types.PublicIdentity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.connected
}

func (f *fixedAccount) set(id types.PublicIdentity, connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id, f.connected = id, connected
}

func connectedWallet(t *testing.T, seed byte) *testutil.MockWalletAgent {
	wallet := testutil.NewMockWalletAgent(testutil.CreateTestKeyMaterial(t, seed))
	_, err := wallet.Connect(context.Background(), true)
	require.NoError(t, err)
	return wallet
}

func Test_RemoteSignerAgent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	msg := []byte("transfer message")

	t.Run("returns the wallet signature", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		accounts := &fixedAccount{id: wallet.Identity(), connected: true}
		agent := NewRemoteSignerAgent(wallet.Identity(), wallet, accounts, logger)

		sig, err := agent.Sign(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, wallet.Identity(), sig.Signer)
		assert.True(t, keyMaterial.Verify(wallet.Identity(), msg, sig.Bytes[:]))
	})

	t.Run("user rejection is surfaced", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		wallet.RejectSign = true
		agent := NewRemoteSignerAgent(wallet.Identity(), wallet, nil, logger)

		_, err := agent.Sign(context.Background(), msg)
		assert.ErrorIs(t, err, types.ErrUserRejected)
	})

	t.Run("disconnected session is unavailable without prompting", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		accounts := &fixedAccount{}
		agent := NewRemoteSignerAgent(wallet.Identity(), wallet, accounts, logger)

		_, err := agent.Sign(context.Background(), msg)
		assert.ErrorIs(t, err, types.ErrAgentUnavailable)
		assert.Equal(t, 0, wallet.SignCalls())
	})

	t.Run("account switch during the prompt is unavailable", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		other := testutil.CreateTestKeyMaterial(t, 2)
		accounts := &fixedAccount{id: wallet.Identity(), connected: true}
		wallet.SignHook = func([]byte) {
			accounts.set(other.Identity(), true)
		}
		agent := NewRemoteSignerAgent(wallet.Identity(), wallet, accounts, logger)

		_, err := agent.Sign(context.Background(), msg)
		assert.ErrorIs(t, err, types.ErrAgentUnavailable)
	})

	t.Run("signature from a different key is invalid", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		expected := testutil.CreateTestKeyMaterial(t, 5).Identity()
		agent := NewRemoteSignerAgent(expected, wallet, nil, logger)

		_, err := agent.Sign(context.Background(), msg)
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("unanswered prompt is bounded by the context", func(t *testing.T) {
		wallet := connectedWallet(t, 1)
		wallet.BlockSign = true
		agent := NewRemoteSignerAgent(wallet.Identity(), wallet, nil, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := agent.Sign(ctx, msg)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

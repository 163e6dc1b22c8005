package walletAgent

import (
	"context"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/keyMaterial"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/testutil"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, agent *testutil.MockWalletAgent) *Client {
	rpcClient := testutil.NewInProcRPCClient(t, types.WalletNamespace, testutil.NewFakeWalletAPI(agent))
	return NewClient(rpcClient, zaptest.NewLogger(t))
}

func Test_WalletAgentClient_ConnectAndSign(t *testing.T) {
	key := testutil.CreateTestKeyMaterial(t, 2)
	agent := testutil.NewMockWalletAgent(key)
	client := newTestClient(t, agent)
	ctx := context.Background()

	id, err := client.Connect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, key.Identity(), id)

	msg := []byte("transaction message")
	resp, err := client.SignMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, key.Identity(), resp.PublicKey)
	assert.True(t, keyMaterial.Verify(key.Identity(), msg, resp.Signature))

	require.NoError(t, client.Disconnect(ctx))
	_, err = client.SignMessage(ctx, msg)
	assert.ErrorIs(t, err, types.ErrAgentUnavailable)
}

func Test_WalletAgentClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("user rejected", func(t *testing.T) {
		agent := testutil.NewMockWalletAgent(testutil.CreateTestKeyMaterial(t, 2))
		agent.RejectSign = true
		agent.SetConnected(true)
		client := newTestClient(t, agent)

		_, err := client.SignMessage(ctx, []byte("m"))
		assert.ErrorIs(t, err, types.ErrUserRejected)
		assert.Equal(t, types.ErrorKindUserRejected, types.KindOf(err))
	})

	t.Run("untrusted eager connect is a rejection", func(t *testing.T) {
		agent := testutil.NewMockWalletAgent(testutil.CreateTestKeyMaterial(t, 2))
		agent.Trusted = false
		client := newTestClient(t, agent)

		_, err := client.Connect(ctx, true)
		assert.ErrorIs(t, err, types.ErrUserRejected)
	})

	t.Run("unanswered prompt times out as unavailable", func(t *testing.T) {
		agent := testutil.NewMockWalletAgent(testutil.CreateTestKeyMaterial(t, 2))
		agent.BlockSign = true
		agent.SetConnected(true)
		client := newTestClient(t, agent)

		timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := client.SignMessage(timeoutCtx, []byte("m"))
		assert.ErrorIs(t, err, types.ErrAgentUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled prompt is not an agent failure", func(t *testing.T) {
		agent := testutil.NewMockWalletAgent(testutil.CreateTestKeyMaterial(t, 2))
		agent.BlockSign = true
		agent.SetConnected(true)
		client := newTestClient(t, agent)

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := client.SignMessage(cancelCtx, []byte("m"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, types.ErrAgentUnavailable)
	})

	t.Run("dial failure is unavailable", func(t *testing.T) {
		_, err := NewWalletAgentClientFromRemoteSignerConfig(ctx, &config.RemoteSignerConfig{
			Url:            "ws://127.0.0.1:1",
			ConnectTimeout: time.Second,
		}, zaptest.NewLogger(t))
		assert.ErrorIs(t, err, types.ErrAgentUnavailable)
	})
}

func Test_WalletAgentClient_SubscribeEvents(t *testing.T) {
	key := testutil.CreateTestKeyMaterial(t, 2)
	agent := testutil.NewMockWalletAgent(key)
	client := newTestClient(t, agent)
	ctx := context.Background()

	events := make(chan *types.WalletEvent, 4)
	sub, err := client.SubscribeEvents(ctx, events)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return agent.ActiveSubscriptions() == 1 }, time.Second, 10*time.Millisecond)

	_, err = client.Connect(ctx, true)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, types.WalletEventConnected, ev.Type)
		require.NotNil(t, ev.PublicKey)
		assert.Equal(t, key.Identity(), *ev.PublicKey)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connect event")
	}

	agent.SwitchAccount(nil)
	select {
	case ev := <-events:
		assert.Equal(t, types.WalletEventAccountChanged, ev.Type)
		assert.Nil(t, ev.PublicKey)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accountChanged event")
	}
}

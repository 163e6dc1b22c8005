package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/testutil"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, mock *testutil.MockLedger) *Client {
	rpcClient := testutil.NewInProcRPCClient(t, types.LedgerNamespace, testutil.NewFakeLedgerAPI(mock))
	return NewClient(rpcClient, &config.LedgerConfig{
		RequestsPerSecond: 1000,
		Burst:             10,
		RequestTimeout:    5 * time.Second,
	}, zaptest.NewLogger(t))
}

func fakeWire(sigByte byte) []byte {
	wire := []byte{1}
	for i := 0; i < types.SignatureLength; i++ {
		wire = append(wire, sigByte)
	}
	return append(wire, 0xaa, 0xbb)
}

func Test_LedgerClient_GetFreshnessToken(t *testing.T) {
	mock := testutil.NewMockLedger()
	client := newTestClient(t, mock)

	first, err := client.GetFreshnessToken(context.Background())
	require.NoError(t, err)
	second, err := client.GetFreshnessToken(context.Background())
	require.NoError(t, err)

	issued := mock.IssuedTokens()
	require.Len(t, issued, 2)
	assert.True(t, first.SameValue(issued[0]))
	assert.True(t, second.SameValue(issued[1]))
	assert.False(t, first.SameValue(second))
	assert.Equal(t, issued[0].LastValidHeight, first.LastValidHeight)
	assert.WithinDuration(t, time.Now(), first.FetchedAt, time.Second)
}

func Test_LedgerClient_Broadcast(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		mock := testutil.NewMockLedger()
		client := newTestClient(t, mock)

		wire := fakeWire(7)
		id, err := client.Broadcast(ctx, wire)
		require.NoError(t, err)
		expected, err := testutil.TransactionIdFromWire(wire)
		require.NoError(t, err)
		assert.Equal(t, expected, id)
		assert.Equal(t, [][]byte{wire}, mock.Broadcasts())
	})

	t.Run("blockhash not found is stale and rejected", func(t *testing.T) {
		mock := testutil.NewMockLedger()
		mock.BroadcastErr = types.ErrStaleFreshnessToken
		client := newTestClient(t, mock)

		_, err := client.Broadcast(ctx, fakeWire(1))
		assert.ErrorIs(t, err, types.ErrSubmissionRejected)
		assert.ErrorIs(t, err, types.ErrStaleFreshnessToken)
		assert.Equal(t, types.ErrorKindStaleFreshnessToken, types.KindOf(err))
	})

	t.Run("other rejection", func(t *testing.T) {
		mock := testutil.NewMockLedger()
		mock.BroadcastErr = fmt.Errorf("insufficient funds")
		client := newTestClient(t, mock)

		_, err := client.Broadcast(ctx, fakeWire(1))
		assert.ErrorIs(t, err, types.ErrSubmissionRejected)
		assert.NotErrorIs(t, err, types.ErrStaleFreshnessToken)
		assert.Contains(t, err.Error(), "insufficient funds")
	})
}

func Test_LedgerClient_Confirm(t *testing.T) {
	mock := testutil.NewMockLedger()
	mock.ConfirmStatuses = []types.ConfirmationStatus{
		types.ConfirmationStatusProcessed,
		types.ConfirmationStatusFinalized,
	}
	client := newTestClient(t, mock)

	resp, err := client.Confirm(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, types.ConfirmationStatusProcessed, resp.Status)
	assert.False(t, resp.Status.Landed())

	resp, err = client.Confirm(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, resp.Status.Landed())
	assert.Equal(t, 2, mock.ConfirmCount())
}

package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// FakeWalletAPI exposes a MockWalletAgent over JSON-RPC under the "wallet" namespace.
type FakeWalletAPI struct {
	agent *MockWalletAgent
}

func NewFakeWalletAPI(agent *MockWalletAgent) *FakeWalletAPI {
	return &FakeWalletAPI{agent: agent}
}

func (api *FakeWalletAPI) Connect(ctx context.Context, trustedOnly bool) (*types.ConnectResponse, error) {
	id, err := api.agent.Connect(ctx, trustedOnly)
	if err != nil {
		return nil, walletRPCError(err)
	}
	return &types.ConnectResponse{PublicKey: id}, nil
}

func (api *FakeWalletAPI) Disconnect(ctx context.Context) error {
	return walletRPCError(api.agent.Disconnect(ctx))
}

func (api *FakeWalletAPI) SignMessage(ctx context.Context, message hexutil.Bytes) (*types.SignMessageResponse, error) {
	resp, err := api.agent.SignMessage(ctx, message)
	if err != nil {
		return nil, walletRPCError(err)
	}
	return resp, nil
}

func (api *FakeWalletAPI) Events(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	events := make(chan *types.WalletEvent, 16)
	sub, err := api.agent.SubscribeEvents(ctx, events)
	if err != nil {
		return nil, walletRPCError(err)
	}

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-events:
				_ = notifier.Notify(rpcSub.ID, ev)
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

func walletRPCError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrUserRejected):
		return &types.RPCError{Code: types.WalletErrUserRejected, Message: err.Error()}
	case errors.Is(err, types.ErrAgentUnavailable):
		return &types.RPCError{Code: types.WalletErrDisconnected, Message: err.Error()}
	default:
		return err
	}
}

// FakeLedgerAPI exposes a MockLedger over JSON-RPC under the "ledger" namespace.
type FakeLedgerAPI struct {
	ledger *MockLedger
}

func NewFakeLedgerAPI(ledger *MockLedger) *FakeLedgerAPI {
	return &FakeLedgerAPI{ledger: ledger}
}

func (api *FakeLedgerAPI) GetFreshnessToken(ctx context.Context) (*types.FreshnessTokenResponse, error) {
	tok, err := api.ledger.GetFreshnessToken(ctx)
	if err != nil {
		return nil, err
	}
	return &types.FreshnessTokenResponse{
		Blockhash:       tok.String(),
		LastValidHeight: tok.LastValidHeight,
	}, nil
}

func (api *FakeLedgerAPI) SendTransaction(ctx context.Context, wire hexutil.Bytes) (string, error) {
	id, err := api.ledger.Broadcast(ctx, wire)
	if err != nil {
		if errors.Is(err, types.ErrStaleFreshnessToken) {
			return "", &types.RPCError{Code: types.LedgerErrBlockhashNotFound, Message: "Blockhash not found"}
		}
		return "", &types.RPCError{Code: types.LedgerErrTransactionFailed, Message: err.Error()}
	}
	return id.String(), nil
}

func (api *FakeLedgerAPI) GetTransactionStatus(ctx context.Context, id string) (*types.TransactionStatusResponse, error) {
	return api.ledger.Confirm(ctx, types.TransactionId(id))
}

// NewInProcRPCClient serves api under namespace on an in-process JSON-RPC server and
// returns a connected client. Both are closed when the test ends.
func NewInProcRPCClient(t *testing.T, namespace string, api interface{}) *rpc.Client {
	server := rpc.NewServer()
	if err := server.RegisterName(namespace, api); err != nil {
		t.Fatalf("Failed to register %s API: %v", namespace, err)
	}
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

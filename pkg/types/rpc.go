package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JSON-RPC namespaces and methods spoken with the wallet agent and the ledger node.
const (
	WalletNamespace          = "wallet"
	WalletMethodConnect      = "wallet_connect"
	WalletMethodDisconnect   = "wallet_disconnect"
	WalletMethodSignMessage  = "wallet_signMessage"
	WalletSubscriptionEvents = "events"

	LedgerNamespace                  = "ledger"
	LedgerMethodGetFreshnessToken    = "ledger_getFreshnessToken"
	LedgerMethodSendTransaction      = "ledger_sendTransaction"
	LedgerMethodGetTransactionStatus = "ledger_getTransactionStatus"
)

// Error codes returned by the collaborators.
const (
	WalletErrUserRejected = 4001
	WalletErrUnauthorized = 4100
	WalletErrDisconnected = 4900

	LedgerErrBlockhashNotFound = -32002
	LedgerErrTransactionFailed = -32003
)

// RPCError carries a JSON-RPC error code across go-ethereum's rpc server.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *RPCError) ErrorCode() int {
	return e.Code
}

type ConnectResponse struct {
	PublicKey PublicIdentity `json:"publicKey"`
}

type SignMessageResponse struct {
	PublicKey PublicIdentity `json:"publicKey"`
	Signature hexutil.Bytes  `json:"signature"`
}

type WalletEventType string

const (
	WalletEventConnected      WalletEventType = "connect"
	WalletEventDisconnected   WalletEventType = "disconnect"
	WalletEventAccountChanged WalletEventType = "accountChanged"
)

// WalletEvent is a notification from the wallet agent. PublicKey is nil for disconnect
// and for an account change to an account the agent does not expose.
type WalletEvent struct {
	Type      WalletEventType `json:"type"`
	PublicKey *PublicIdentity `json:"publicKey,omitempty"`
}

type FreshnessTokenResponse struct {
	Blockhash       string `json:"blockhash"`
	LastValidHeight uint64 `json:"lastValidBlockHeight"`
}

type ConfirmationStatus string

const (
	ConfirmationStatusUnknown   ConfirmationStatus = ""
	ConfirmationStatusProcessed ConfirmationStatus = "processed"
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	ConfirmationStatusFinalized ConfirmationStatus = "finalized"
	ConfirmationStatusFailed    ConfirmationStatus = "failed"
)

// Landed reports whether the status means the transaction executed successfully.
func (s ConfirmationStatus) Landed() bool {
	return s == ConfirmationStatusConfirmed || s == ConfirmationStatusFinalized
}

type TransactionStatusResponse struct {
	Status ConfirmationStatus `json:"confirmationStatus"`
	Err    string             `json:"err,omitempty"`
}

// Subscription is a live event stream; *rpc.ClientSubscription satisfies it.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

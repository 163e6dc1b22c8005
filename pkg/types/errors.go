package types

import (
	"context"
	"errors"
)

var (
	ErrMalformedKey        = errors.New("malformed key")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrAgentUnavailable    = errors.New("signing agent unavailable")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrStaleFreshnessToken = errors.New("stale freshness token")
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrInvalidInstruction  = errors.New("invalid transfer instruction")
	ErrAlreadySubmitted    = errors.New("transaction encoding was already submitted")
)

// ErrorKind is the tag attached to a failed transfer result.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindMalformedKey        ErrorKind = "MalformedKey"
	ErrorKindUserRejected        ErrorKind = "UserRejected"
	ErrorKindAgentUnavailable    ErrorKind = "AgentUnavailable"
	ErrorKindInvalidSignature    ErrorKind = "InvalidSignature"
	ErrorKindStaleFreshnessToken ErrorKind = "StaleFreshnessToken"
	ErrorKindSubmissionRejected  ErrorKind = "SubmissionRejected"
	ErrorKindConfirmationTimeout ErrorKind = "ConfirmationTimeout"
	ErrorKindInvalidInstruction  ErrorKind = "InvalidInstruction"
	ErrorKindAlreadySubmitted    ErrorKind = "AlreadySubmitted"
	ErrorKindCancelled           ErrorKind = "Cancelled"
	ErrorKindInternal            ErrorKind = "Internal"
)

// order matters: a stale token rejected by the ledger carries both the stale and the
// rejected sentinel and must be reported as stale.
var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrStaleFreshnessToken, ErrorKindStaleFreshnessToken},
	{ErrMalformedKey, ErrorKindMalformedKey},
	{ErrUserRejected, ErrorKindUserRejected},
	{ErrInvalidSignature, ErrorKindInvalidSignature},
	{ErrSubmissionRejected, ErrorKindSubmissionRejected},
	{ErrConfirmationTimeout, ErrorKindConfirmationTimeout},
	{ErrAgentUnavailable, ErrorKindAgentUnavailable},
	{ErrInvalidInstruction, ErrorKindInvalidInstruction},
	{ErrAlreadySubmitted, ErrorKindAlreadySubmitted},
}

func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCancelled
	}
	return ErrorKindInternal
}

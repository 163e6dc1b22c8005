package signerAgent

import (
	"context"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
)

type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// ISignerAgent produces signatures over a transaction's canonical message for one identity.
type ISignerAgent interface {
	Identity() types.PublicIdentity
	Kind() Kind
	// Sign returns a signature over message. Remote agents may block on a human and must
	// be bounded by ctx.
	Sign(ctx context.Context, message []byte) (*types.Signature, error)
}

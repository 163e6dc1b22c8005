package signatureCollector

import (
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/transaction"
	"github.com/google/uuid"
)

type RoundState int

const (
	RoundPending RoundState = iota
	RoundSigning
	RoundComplete
	RoundAborted
	RoundSubmitted
)

func (s RoundState) String() string {
	switch s {
	case RoundPending:
		return "pending"
	case RoundSigning:
		return "signing"
	case RoundComplete:
		return "complete"
	case RoundAborted:
		return "aborted"
	case RoundSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("RoundState(%d)", int(s))
	}
}

// SigningRound is one attempt to collect every required signature for a skeleton. A round
// moves forward only: pending, signing, then complete or aborted, and a complete round is
// submitted at most once.
type SigningRound struct {
	ID        string
	Skeleton  *transaction.Skeleton
	CreatedAt time.Time

	mu    sync.Mutex
	state RoundState
	err   error
}

func NewSigningRound(skeleton *transaction.Skeleton) *SigningRound {
	return &SigningRound{
		ID:        fmt.Sprintf("round-%s", uuid.New().String()),
		Skeleton:  skeleton,
		CreatedAt: time.Now(),
	}
}

func (r *SigningRound) State() RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error that aborted the round, if any.
func (r *SigningRound) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *SigningRound) transition(from, to RoundState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return fmt.Errorf("round %s is %s, expected %s", r.ID, r.state, from)
	}
	r.state = to
	return nil
}

// Abort discards every collected signature. An aborted round cannot be reused.
func (r *SigningRound) Abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RoundSubmitted {
		return
	}
	r.Skeleton.ClearSignatures()
	r.state = RoundAborted
	r.err = err
}

// MarkSubmitted consumes a complete round.
func (r *SigningRound) MarkSubmitted() error {
	return r.transition(RoundComplete, RoundSubmitted)
}

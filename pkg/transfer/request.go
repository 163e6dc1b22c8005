package transfer

import (
	"fmt"
	"strings"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/config"
	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
)

// Party names a transfer participant either by signer role ("local", "remote", or the
// name of a configured local signer) or by a base58 public identity.
type Party string

// InstructionRequest is a transfer instruction whose parties have not been resolved yet.
type InstructionRequest struct {
	From   Party  `json:"from"`
	To     Party  `json:"to"`
	Amount uint64 `json:"amount"`
}

type TransferRequest struct {
	Instructions []InstructionRequest `json:"instructions"`
	// FeePayer overrides the configured fee payer role when set.
	FeePayer Party `json:"feePayer,omitempty"`
}

func (r *TransferRequest) Validate() error {
	if r == nil || len(r.Instructions) == 0 {
		return fmt.Errorf("%w: at least one instruction is required", types.ErrInvalidInstruction)
	}
	for i, ix := range r.Instructions {
		if ix.From == "" || ix.To == "" {
			return fmt.Errorf("%w: instruction %d must name both parties", types.ErrInvalidInstruction, i)
		}
		if ix.Amount == 0 {
			return fmt.Errorf("%w: instruction %d amount must be positive", types.ErrInvalidInstruction, i)
		}
	}
	return nil
}

// resolver maps parties to identities for one round.
type resolver struct {
	locals          map[config.SignerRole]types.PublicIdentity
	remote          types.PublicIdentity
	remoteConnected bool
}

func (r *resolver) known(role config.SignerRole) bool {
	if role == config.SignerRoleRemote {
		return true
	}
	_, ok := r.locals[role]
	return ok
}

func (r *resolver) role(role config.SignerRole) (types.PublicIdentity, error) {
	if role == config.SignerRoleRemote {
		if !r.remoteConnected {
			return types.PublicIdentity{}, fmt.Errorf("%w: remote wallet is not connected", types.ErrAgentUnavailable)
		}
		return r.remote, nil
	}
	if id, ok := r.locals[role]; ok {
		return id, nil
	}
	return types.PublicIdentity{}, fmt.Errorf("%w: unknown signer role %q", types.ErrInvalidInstruction, role)
}

func (r *resolver) party(p Party) (types.PublicIdentity, error) {
	s := strings.TrimSpace(string(p))
	if role, err := config.ParseSignerRole(s); err == nil && r.known(role) {
		return r.role(role)
	}
	id, err := types.ParseIdentity(s)
	if err != nil {
		return types.PublicIdentity{}, fmt.Errorf("%w: party %q is neither a signer role nor a public key", types.ErrInvalidInstruction, s)
	}
	return id, nil
}

// isLocal reports whether id belongs to one of the in-process signers.
func (r *resolver) isLocal(id types.PublicIdentity) bool {
	for _, local := range r.locals {
		if local == id {
			return true
		}
	}
	return false
}

func (r *resolver) instructions(reqs []InstructionRequest) ([]types.TransferInstruction, error) {
	out := make([]types.TransferInstruction, 0, len(reqs))
	for i, req := range reqs {
		from, err := r.party(req.From)
		if err != nil {
			return nil, fmt.Errorf("instruction %d from: %w", i, err)
		}
		to, err := r.party(req.To)
		if err != nil {
			return nil, fmt.Errorf("instruction %d to: %w", i, err)
		}
		out = append(out, types.NewTransfer(from, to, req.Amount))
	}
	return out, nil
}

// order resolves the configured signer roles, skipping roles that cannot be resolved.
func (r *resolver) order(roles []config.SignerRole) []types.PublicIdentity {
	var ids []types.PublicIdentity
	for _, role := range roles {
		id, err := r.role(role)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

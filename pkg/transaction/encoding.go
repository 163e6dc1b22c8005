package transaction

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-cosigner-go/pkg/types"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

const (
	// MaxWireSize is the largest encoded transaction the ledger accepts in one packet.
	MaxWireSize = 1232

	// system transfer data: u32 instruction tag followed by u64 lamports
	transferDataLength = 4 + 8
)

// SystemProgramID is the program that executes native transfers.
var SystemProgramID = types.PublicIdentity(solana.SystemProgramID)

func toPublicKey(id types.PublicIdentity) solana.PublicKey {
	return solana.PublicKey(id)
}

func fromPublicKey(key solana.PublicKey) types.PublicIdentity {
	return types.PublicIdentity(key)
}

// newTransaction compiles the transfers into an unsigned legacy transaction. Account keys
// come out fee payer first, then the remaining signers, writable accounts and the system
// program.
func newTransaction(feePayer types.PublicIdentity, token types.FreshnessToken, instructions []types.TransferInstruction) (*solana.Transaction, error) {
	ixs := make([]solana.Instruction, 0, len(instructions))
	for _, ix := range instructions {
		ixs = append(ixs, system.NewTransferInstruction(ix.Amount, toPublicKey(ix.From), toPublicKey(ix.To)).Build())
	}
	tx, err := solana.NewTransaction(ixs, solana.Hash(token.Value), solana.TransactionPayer(toPublicKey(feePayer)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInstruction, err)
	}
	return tx, nil
}

// messageSigners returns the accounts whose signatures the message header requires, in order.
func messageSigners(msg *solana.Message) []types.PublicIdentity {
	n := int(msg.Header.NumRequiredSignatures)
	if n > len(msg.AccountKeys) {
		n = len(msg.AccountKeys)
	}
	out := make([]types.PublicIdentity, 0, n)
	for _, key := range msg.AccountKeys[:n] {
		out = append(out, fromPublicKey(key))
	}
	return out
}

// decodeTransfers recovers the transfer instructions of a decoded message. Anything other
// than a system transfer is rejected.
func decodeTransfers(msg *solana.Message) ([]types.TransferInstruction, error) {
	if len(msg.Instructions) == 0 {
		return nil, fmt.Errorf("message has no instructions")
	}
	keys := msg.AccountKeys
	out := make([]types.TransferInstruction, 0, len(msg.Instructions))
	for i, compiled := range msg.Instructions {
		if int(compiled.ProgramIDIndex) >= len(keys) || !keys[compiled.ProgramIDIndex].Equals(solana.SystemProgramID) {
			return nil, fmt.Errorf("instruction %d: unsupported program at account index %d", i, compiled.ProgramIDIndex)
		}
		if len(compiled.Accounts) != 2 {
			return nil, fmt.Errorf("instruction %d: transfer expects 2 accounts, got %d", i, len(compiled.Accounts))
		}
		if len(compiled.Data) != transferDataLength {
			return nil, fmt.Errorf("instruction %d: instruction is not a system transfer", i)
		}
		metas := make([]*solana.AccountMeta, 0, len(compiled.Accounts))
		for _, idx := range compiled.Accounts {
			if int(idx) >= len(keys) {
				return nil, fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
			metas = append(metas, solana.NewAccountMeta(keys[idx], false, false))
		}

		decoded, err := system.DecodeInstruction(metas, compiled.Data)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		transfer, ok := decoded.Impl.(*system.Transfer)
		if !ok || transfer.Lamports == nil {
			return nil, fmt.Errorf("instruction %d: instruction is not a system transfer", i)
		}
		out = append(out, types.NewTransfer(
			fromPublicKey(transfer.GetFundingAccount().PublicKey),
			fromPublicKey(transfer.GetRecipientAccount().PublicKey),
			*transfer.Lamports,
		))
	}
	return out, nil
}

// decodeTransaction parses a complete wire encoding and rejects trailing bytes.
func decodeTransaction(data []byte) (*solana.Transaction, error) {
	decoder := bin.NewBinDecoder(data)
	tx, err := solana.TransactionFromDecoder(decoder)
	if err != nil {
		return nil, err
	}
	if rem := decoder.Remaining(); rem != 0 {
		return nil, fmt.Errorf("%d trailing bytes after message", rem)
	}
	return tx, nil
}

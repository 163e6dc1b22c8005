package types

import "fmt"

// TransferInstruction moves Amount (smallest unit) from From to To.
type TransferInstruction struct {
	From   PublicIdentity `json:"from"`
	To     PublicIdentity `json:"to"`
	Amount uint64         `json:"amount"`
}

func NewTransfer(from, to PublicIdentity, amount uint64) TransferInstruction {
	return TransferInstruction{From: from, To: to, Amount: amount}
}

func (ti TransferInstruction) Validate() error {
	if ti.From.IsZero() {
		return fmt.Errorf("%w: from identity is empty", ErrInvalidInstruction)
	}
	if ti.To.IsZero() {
		return fmt.Errorf("%w: to identity is empty", ErrInvalidInstruction)
	}
	if ti.From == ti.To {
		return fmt.Errorf("%w: from and to are both %s", ErrInvalidInstruction, ti.From)
	}
	if ti.Amount == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInstruction)
	}
	return nil
}

func (ti TransferInstruction) String() string {
	return fmt.Sprintf("transfer(%s -> %s, %d)", ti.From, ti.To, ti.Amount)
}

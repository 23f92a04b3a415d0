package escrow

import (
	"crypto/ed25519"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana"
	"github.com/escrowhq/escrow-server/pkg/solana/binary"
	"github.com/escrowhq/escrow-server/pkg/solana/token"
)

type Command byte

const (
	CommandMake Command = iota
	CommandTake
	CommandRefund
)

const MakeInstructionArgsSize = (8 + // seed
	8 + // receive
	8) // amount

type MakeInstructionArgs struct {
	Seed    uint64
	Receive uint64
	Amount  uint64
}

// Unmarshal parses and validates a Make payload. Zero amounts are rejected
// here, before any account is touched.
func (args *MakeInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != MakeInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	binary.GetUint64(data, &args.Seed, &offset)
	binary.GetUint64(data[offset:], &args.Receive, &offset)
	binary.GetUint64(data[offset:], &args.Amount, &offset)

	if args.Amount == 0 || args.Receive == 0 {
		return program.ErrInvalidInstructionData
	}

	return nil
}

type MakeInstructionAccounts struct {
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	MintB       ed25519.PublicKey
	MakerTokenA ed25519.PublicKey
	Vault       ed25519.PublicKey
}

func NewMakeInstruction(accounts *MakeInstructionAccounts, args *MakeInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, 1+MakeInstructionArgsSize)
	binary.PutUint8(data, uint8(CommandMake), &offset)
	binary.PutUint64(data[offset:], args.Seed, &offset)
	binary.PutUint64(data[offset:], args.Receive, &offset)
	binary.PutUint64(data[offset:], args.Amount, &offset)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.MakerTokenA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(ledger.SystemOwner, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

type TakeInstructionAccounts struct {
	Taker       ed25519.PublicKey
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	MintB       ed25519.PublicKey
	Vault       ed25519.PublicKey
	TakerTokenA ed25519.PublicKey
	TakerTokenB ed25519.PublicKey
	MakerTokenB ed25519.PublicKey
}

func NewTakeInstruction(accounts *TakeInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandTake)},
		solana.NewAccountMeta(accounts.Taker, true),
		solana.NewAccountMeta(accounts.Maker, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewReadonlyAccountMeta(accounts.MintB, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.TakerTokenA, false),
		solana.NewAccountMeta(accounts.TakerTokenB, false),
		solana.NewAccountMeta(accounts.MakerTokenB, false),
		solana.NewReadonlyAccountMeta(ledger.SystemOwner, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

type RefundInstructionAccounts struct {
	Maker       ed25519.PublicKey
	Escrow      ed25519.PublicKey
	MintA       ed25519.PublicKey
	Vault       ed25519.PublicKey
	MakerTokenA ed25519.PublicKey
}

func NewRefundInstruction(accounts *RefundInstructionAccounts) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandRefund)},
		solana.NewAccountMeta(accounts.Maker, true),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(accounts.MintA, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.MakerTokenA, false),
		solana.NewReadonlyAccountMeta(ledger.SystemOwner, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

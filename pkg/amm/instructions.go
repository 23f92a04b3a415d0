package amm

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana"
	bin "github.com/escrowhq/escrow-server/pkg/solana/binary"
)

// ProgramKey is the AMM program's identity.
var ProgramKey = ed25519.PublicKey{
	0x31, 0xa0, 0x5c, 0x57, 0x69, 0x00, 0x89, 0xd3,
	0x91, 0x71, 0x38, 0x43, 0x73, 0x7e, 0xa2, 0xe7,
	0x17, 0xaf, 0x27, 0xff, 0x3d, 0xdc, 0xb7, 0x90,
	0x6b, 0x67, 0x74, 0x46, 0x3b, 0xec, 0xf0, 0x6e,
}

var (
	configSeedPrefix = []byte("config")
	lpMintSeedPrefix = []byte("mint_lp")
)

const maxFeeBasisPoints = 10_000

type Command byte

const (
	CommandInitialize Command = iota
	CommandDeposit
	CommandWithdraw
	CommandSwap
)

// DeriveConfigAuthority finds the pool address for (seed, mint_x, mint_y).
func DeriveConfigAuthority(seed uint64, mintX, mintY ed25519.PublicKey) (solana.DerivedAuthority, ed25519.PublicKey, error) {
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, seed)

	return solana.NewDerivedAuthority(ProgramKey, configSeedPrefix, seedBytes, mintX, mintY)
}

// DeriveLPMintAuthority finds the LP mint address for a pool.
func DeriveLPMintAuthority(config ed25519.PublicKey) (solana.DerivedAuthority, ed25519.PublicKey, error) {
	return solana.NewDerivedAuthority(ProgramKey, lpMintSeedPrefix, config)
}

const InitializeInstructionArgsSize = (8 + // seed
	2 + // fee
	32 + // mint_x
	32 + // mint_y
	32) // authority

type InitializeInstructionArgs struct {
	Seed  uint64
	Fee   uint16
	MintX ed25519.PublicKey
	MintY ed25519.PublicKey
	// Optional pool administrator; all zeroes means none.
	Authority ed25519.PublicKey
}

func (args *InitializeInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != InitializeInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	bin.GetUint64(data, &args.Seed, &offset)
	bin.GetUint16(data[offset:], &args.Fee, &offset)
	bin.GetKey32(data[offset:], &args.MintX, &offset)
	bin.GetKey32(data[offset:], &args.MintY, &offset)
	bin.GetKey32(data[offset:], &args.Authority, &offset)

	if args.Fee > maxFeeBasisPoints {
		return program.ErrInvalidInstructionData
	}
	if bytes.Equal(args.MintX, args.MintY) {
		return program.ErrInvalidInstructionData
	}

	return nil
}

const DepositInstructionArgsSize = (8 + // amount
	8 + // max_x
	8 + // max_y
	8) // expiration

type DepositInstructionArgs struct {
	// LP tokens to mint.
	Amount uint64
	MaxX   uint64
	MaxY   uint64
	// Parsed but not enforced; sibling decoders carry the field without a
	// corresponding check.
	Expiration int64
}

func (args *DepositInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != DepositInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	bin.GetUint64(data, &args.Amount, &offset)
	bin.GetUint64(data[offset:], &args.MaxX, &offset)
	bin.GetUint64(data[offset:], &args.MaxY, &offset)
	bin.GetInt64(data[offset:], &args.Expiration, &offset)

	if args.Amount == 0 || args.MaxX == 0 || args.MaxY == 0 {
		return program.ErrInvalidInstructionData
	}

	return nil
}

const WithdrawInstructionArgsSize = (8 + // amount
	8 + // min_x
	8 + // min_y
	8) // expiration

type WithdrawInstructionArgs struct {
	// LP tokens to burn.
	Amount     uint64
	MinX       uint64
	MinY       uint64
	Expiration int64
}

func (args *WithdrawInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != WithdrawInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	bin.GetUint64(data, &args.Amount, &offset)
	bin.GetUint64(data[offset:], &args.MinX, &offset)
	bin.GetUint64(data[offset:], &args.MinY, &offset)
	bin.GetInt64(data[offset:], &args.Expiration, &offset)

	if args.Amount == 0 {
		return program.ErrInvalidInstructionData
	}

	return nil
}

const SwapInstructionArgsSize = (1 + // is_x
	8 + // amount
	8 + // min
	8) // expiration

type SwapInstructionArgs struct {
	// Direction: true swaps X in for Y out.
	IsX        bool
	Amount     uint64
	Min        uint64
	Expiration int64
}

func (args *SwapInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != SwapInstructionArgsSize {
		return program.ErrInvalidInstructionData
	}

	var offset int
	var isX uint8
	bin.GetUint8(data, &isX, &offset)
	args.IsX = isX != 0
	bin.GetUint64(data[offset:], &args.Amount, &offset)
	bin.GetUint64(data[offset:], &args.Min, &offset)
	bin.GetInt64(data[offset:], &args.Expiration, &offset)

	if args.Amount == 0 || args.Min == 0 {
		return program.ErrInvalidInstructionData
	}

	return nil
}

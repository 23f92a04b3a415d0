package amm

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana"
	bin "github.com/escrowhq/escrow-server/pkg/solana/binary"
)

type PoolState byte

const (
	PoolStateUninitialized PoolState = iota
	PoolStateInitialized
	PoolStateDisabled
	PoolStateWithdrawOnly
)

const ConfigAccountSize = (1 + // state
	8 + // seed
	32 + // authority
	32 + // mint_x
	32 + // mint_y
	2 + // fee
	1) // bump

// ConfigAccount is the pool's fixed-layout record.
type ConfigAccount struct {
	State     PoolState
	Seed      uint64
	Authority ed25519.PublicKey
	MintX     ed25519.PublicKey
	MintY     ed25519.PublicKey
	// Swap fee in basis points.
	Fee  uint16
	Bump uint8
}

func (obj *ConfigAccount) Marshal() []byte {
	data := make([]byte, ConfigAccountSize)

	var offset int
	bin.PutUint8(data, uint8(obj.State), &offset)
	bin.PutUint64(data[offset:], obj.Seed, &offset)
	bin.PutKey32(data[offset:], obj.Authority, &offset)
	bin.PutKey32(data[offset:], obj.MintX, &offset)
	bin.PutKey32(data[offset:], obj.MintY, &offset)
	bin.PutUint16(data[offset:], obj.Fee, &offset)
	bin.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

func (obj *ConfigAccount) Unmarshal(data []byte) error {
	if len(data) != ConfigAccountSize {
		return program.ErrInvalidAccountData
	}

	var offset int
	var state uint8
	bin.GetUint8(data, &state, &offset)
	obj.State = PoolState(state)
	bin.GetUint64(data[offset:], &obj.Seed, &offset)
	bin.GetKey32(data[offset:], &obj.Authority, &offset)
	bin.GetKey32(data[offset:], &obj.MintX, &offset)
	bin.GetKey32(data[offset:], &obj.MintY, &offset)
	bin.GetUint16(data[offset:], &obj.Fee, &offset)
	bin.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

func (obj *ConfigAccount) IsInitialized() bool {
	return obj.State == PoolStateInitialized
}

func (obj *ConfigAccount) CanWithdraw() bool {
	return obj.State == PoolStateInitialized || obj.State == PoolStateWithdrawOnly
}

// ConfigAuthority reconstructs the pool's signing authority from recorded
// fields.
func (obj *ConfigAccount) ConfigAuthority() solana.DerivedAuthority {
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, obj.Seed)

	return solana.DerivedAuthority{
		Program: ProgramKey,
		Seeds:   [][]byte{configSeedPrefix, seedBytes, obj.MintX, obj.MintY},
		Bump:    obj.Bump,
	}
}

func (obj *ConfigAccount) String() string {
	return fmt.Sprintf(
		"ConfigAccount{state=%d,seed=%d,mint_x=%s,mint_y=%s,fee=%d,bump=%d}",
		obj.State,
		obj.Seed,
		base58.Encode(obj.MintX),
		base58.Encode(obj.MintY),
		obj.Fee,
		obj.Bump,
	)
}

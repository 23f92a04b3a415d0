package escrow

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana"
	"github.com/escrowhq/escrow-server/pkg/solana/binary"
)

const EscrowAccountSize = (8 + // seed
	32 + // maker
	32 + // mint_a
	32 + // mint_b
	8 + // receive
	1) // bump

// EscrowAccount is the fixed-layout record describing one pending trade.
// It is written exactly once, at creation, and never mutated afterwards;
// the account holding it is destroyed by whichever of Take or Refund
// consumes the escrow.
type EscrowAccount struct {
	// Client-chosen nonce making the derived address unique per trade.
	Seed uint64
	// The creator, and the sole authority for Refund.
	Maker ed25519.PublicKey
	// The asset type locked in the vault.
	MintA ed25519.PublicKey
	// The asset type the maker wants to receive.
	MintB ed25519.PublicKey
	// Exact amount of MintB required to complete the trade.
	Receive uint64
	// The derivation salt that makes the escrow address valid (off-curve).
	Bump uint8
}

// Marshal serializes the record in one shot. There is no partial write
// path: the record is populated exactly once at creation.
func (obj *EscrowAccount) Marshal() []byte {
	data := make([]byte, EscrowAccountSize)

	var offset int
	binary.PutUint64(data, obj.Seed, &offset)
	binary.PutKey32(data[offset:], obj.Maker, &offset)
	binary.PutKey32(data[offset:], obj.MintA, &offset)
	binary.PutKey32(data[offset:], obj.MintB, &offset)
	binary.PutUint64(data[offset:], obj.Receive, &offset)
	binary.PutUint8(data[offset:], obj.Bump, &offset)

	return data
}

// Unmarshal parses the record, rejecting anything but an exact-length
// buffer. No partial records are accepted.
func (obj *EscrowAccount) Unmarshal(data []byte) error {
	if len(data) != EscrowAccountSize {
		return program.ErrInvalidAccountData
	}

	var offset int
	binary.GetUint64(data, &obj.Seed, &offset)
	binary.GetKey32(data[offset:], &obj.Maker, &offset)
	binary.GetKey32(data[offset:], &obj.MintA, &offset)
	binary.GetKey32(data[offset:], &obj.MintB, &offset)
	binary.GetUint64(data[offset:], &obj.Receive, &offset)
	binary.GetUint8(data[offset:], &obj.Bump, &offset)

	return nil
}

// Authority reconstructs the escrow's signing authority from the recorded
// fields and the supplied maker.
func (obj *EscrowAccount) Authority(maker ed25519.PublicKey) solana.DerivedAuthority {
	return EscrowAuthority(maker, obj.Seed, obj.Bump)
}

func (obj *EscrowAccount) String() string {
	return fmt.Sprintf(
		"EscrowAccount{seed=%d,maker=%s,mint_a=%s,mint_b=%s,receive=%d,bump=%d}",
		obj.Seed,
		base58.Encode(obj.Maker),
		base58.Encode(obj.MintA),
		base58.Encode(obj.MintB),
		obj.Receive,
		obj.Bump,
	)
}

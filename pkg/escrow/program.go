// Package escrow implements a trustless two-party asset-swap escrow: a
// maker locks an amount of one asset and declares the amount of a second
// asset required to complete the trade; a taker may complete the swap
// atomically, or the maker may cancel and reclaim the locked asset.
package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/escrowhq/escrow-server/pkg/solana"
)

// ProgramKey is the escrow program's identity. It owns every escrow record
// and anchors the derivation of every escrow authority.
//
// Current key: 22222222222222222222222222222222222222222222
var ProgramKey = ed25519.PublicKey{
	0x0f, 0x1e, 0x6b, 0x14, 0x21, 0xc0, 0x4a, 0x07,
	0x04, 0x31, 0x26, 0x5c, 0x19, 0xc5, 0xbb, 0xee,
	0x19, 0x92, 0xba, 0xe8, 0xaf, 0xd1, 0xcd, 0x07,
	0x8e, 0xf8, 0xaf, 0x70, 0x47, 0xdc, 0x11, 0xf7,
}

var escrowSeedPrefix = []byte("escrow")

// DeriveEscrowAuthority finds the escrow address for (maker, seed) by
// walking bump seeds, returning the signing authority for it alongside
// the address. Used at creation time, before a bump has been recorded.
func DeriveEscrowAuthority(maker ed25519.PublicKey, seed uint64) (solana.DerivedAuthority, ed25519.PublicKey, error) {
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, seed)

	return solana.NewDerivedAuthority(ProgramKey, escrowSeedPrefix, maker, seedBytes)
}

// EscrowAuthority reconstructs the signing authority for an existing
// escrow from its recorded seed and bump. The caller must still confirm
// the authority reproduces the escrow account's actual address.
func EscrowAuthority(maker ed25519.PublicKey, seed uint64, bump uint8) solana.DerivedAuthority {
	seedBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedBytes, seed)

	return solana.DerivedAuthority{
		Program: ProgramKey,
		Seeds:   [][]byte{escrowSeedPrefix, maker, seedBytes},
		Bump:    bump,
	}
}

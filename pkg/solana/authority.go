package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

// DerivedAuthority is the signing capability for a keyless program-derived
// address. It carries the domain-separated seed list and the bump that make
// the derivation land off-curve; any holder can authorize actions "as" the
// derived address by reproducing it, without a private key ever existing.
//
// The value is passed explicitly to services that need authorization rather
// than being registered in any ambient signing state.
type DerivedAuthority struct {
	Program ed25519.PublicKey
	Seeds   [][]byte
	Bump    uint8
}

// NewDerivedAuthority derives the bump for the given seed list and returns
// the resulting authority along with its address.
func NewDerivedAuthority(program ed25519.PublicKey, seeds ...[]byte) (DerivedAuthority, ed25519.PublicKey, error) {
	address, bump, err := FindProgramAddressAndBump(program, seeds...)
	if err != nil {
		return DerivedAuthority{}, nil, errors.Wrap(err, "failed to derive authority")
	}

	return DerivedAuthority{
		Program: program,
		Seeds:   seeds,
		Bump:    bump,
	}, address, nil
}

// Address recomputes the derived address from the seed list and bump.
func (a DerivedAuthority) Address() (ed25519.PublicKey, error) {
	return CreateProgramAddress(a.Program, append(a.Seeds, []byte{a.Bump})...)
}

// Authorizes reports whether this authority's derivation reproduces the
// provided address. A stored bump that no longer lands on the address (or
// seeds for a different owner) fails the check.
func (a DerivedAuthority) Authorizes(address ed25519.PublicKey) bool {
	derived, err := a.Address()
	if err != nil {
		return false
	}
	return bytes.Equal(derived, address)
}

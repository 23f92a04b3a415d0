package program

import (
	"bytes"
	"crypto/ed25519"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/solana/token"
)

// Each check is a pure predicate over one account view plus contextual
// parameters. Handlers compose them in a fixed order, and every check for
// an instruction runs before its first side effect.

// CheckSigner fails unless the account's signature bit is set for the
// current invocation.
func CheckSigner(account *ledger.Account) error {
	if !account.Signer {
		return ErrMissingSignature
	}
	return nil
}

// CheckOwnedBy fails unless the account is owned by the given program and
// its data length matches the expected record size exactly.
func CheckOwnedBy(account *ledger.Account, owner ed25519.PublicKey, expectedLen int) error {
	if !bytes.Equal(account.Owner, owner) {
		return ErrInvalidAccountOwner
	}
	if len(account.Data) != expectedLen {
		return ErrInvalidAccountData
	}
	return nil
}

// CheckMint fails unless the account is owned by the asset-ledger program
// and carries mint-sized data.
func CheckMint(account *ledger.Account) error {
	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return ErrInvalidAccountOwner
	}
	if len(account.Data) != token.MintSize {
		return ErrInvalidAccountData
	}
	return nil
}

// CheckAssociatedTokenAccount recomputes the deterministic address for
// (owner, mint, asset-ledger program) and fails unless it equals the
// supplied account's address. This is the only basis on which
// client-supplied token holding accounts are trusted; no per-field audit
// of the account is performed.
func CheckAssociatedTokenAccount(account *ledger.Account, owner, mint ed25519.PublicKey) error {
	expected, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, account.Address) {
		return ErrInvalidAccountData
	}
	return nil
}

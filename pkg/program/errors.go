// Package program holds the authorization primitives shared by the escrow
// program and its siblings: the instruction-level error taxonomy and the
// composable account capability checks.
package program

import "github.com/pkg/errors"

// Every failure below is terminal for the current instruction. The host
// transaction model guarantees no partial mutation survives, so a caller
// can always resubmit a corrected instruction.
var (
	ErrAccountCountMismatch   = errors.New("unexpected number of accounts")
	ErrMissingSignature       = errors.New("missing required signature")
	ErrInvalidAccountOwner    = errors.New("invalid account owner")
	ErrInvalidAccountData     = errors.New("invalid account data")
	ErrInvalidInstructionData = errors.New("invalid instruction data")
	ErrUninitializedAccount   = errors.New("uninitialized account")
)

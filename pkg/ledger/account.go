package ledger

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// SystemOwner is the owner assigned to accounts that no program has
// claimed yet. Freshly registered and deallocated accounts carry it.
//
// Current key: 11111111111111111111111111111111
var SystemOwner = make(ed25519.PublicKey, ed25519.PublicKeySize)

// Account is a single addressable byte buffer in the ledger, plus the
// per-invocation capability flags the host runtime stamps onto it.
type Account struct {
	Address  ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64
	Data     []byte

	// Signer and Writable are transaction-scoped: they describe what the
	// current invocation is allowed to do with the account, not a durable
	// property of it.
	Signer   bool
	Writable bool
}

// IsAllocated reports whether the account currently exists in valid form:
// it holds a storage deposit or data, or has been claimed by a program.
func (a *Account) IsAllocated() bool {
	return a.Lamports > 0 || len(a.Data) > 0 || !bytes.Equal(a.Owner, SystemOwner)
}

func (a *Account) String() string {
	return fmt.Sprintf(
		"Account{address=%s,owner=%s,lamports=%d,data=%d}",
		base58.Encode(a.Address),
		base58.Encode(a.Owner),
		a.Lamports,
		len(a.Data),
	)
}

type accountSnapshot struct {
	owner    ed25519.PublicKey
	lamports uint64
	data     []byte
}

func (a *Account) snapshot() accountSnapshot {
	owner := make(ed25519.PublicKey, len(a.Owner))
	copy(owner, a.Owner)

	var data []byte
	if a.Data != nil {
		data = make([]byte, len(a.Data))
		copy(data, a.Data)
	}

	return accountSnapshot{
		owner:    owner,
		lamports: a.Lamports,
		data:     data,
	}
}

func (a *Account) restore(s accountSnapshot) {
	a.Owner = s.owner
	a.Lamports = s.lamports
	a.Data = s.data
}

// Authorization is the capability required to act as an address. It is
// satisfied either by an account whose signature bit is set, or by a
// derived authority that can reproduce the address from its seed list.
type Authorization interface {
	Authorizes(address ed25519.PublicKey) bool
}

// SignedBy authorizes actions as the account's own address, provided the
// account signed the current transaction.
type SignedBy struct {
	Account *Account
}

func (s SignedBy) Authorizes(address ed25519.PublicKey) bool {
	return s.Account != nil && s.Account.Signer && bytes.Equal(s.Account.Address, address)
}

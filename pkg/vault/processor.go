// Package vault implements the single-owner balance vault: a depositor
// parks lamports in a derived account only they can unlock, and later
// withdraws the full balance. It reuses the escrow system's authorization
// primitives and carries no token logic.
package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana"
	"github.com/escrowhq/escrow-server/pkg/solana/binary"
)

// ProgramKey is the vault program's identity.
var ProgramKey = ed25519.PublicKey{
	0xe6, 0xf0, 0xa1, 0xfb, 0xb4, 0x3c, 0x89, 0x19,
	0x6d, 0xcf, 0xcb, 0xef, 0x85, 0x90, 0x8f, 0x19,
	0xab, 0x4c, 0x5f, 0x7c, 0xc4, 0xf4, 0xc4, 0x52,
	0x28, 0x46, 0x97, 0x75, 0x76, 0x83, 0xd7, 0xef,
}

var vaultSeedPrefix = []byte("vault")

var (
	ErrVaultAlreadyExists = errors.New("vault already holds a deposit")
	ErrInvalidAmount      = errors.New("deposit below rent-exemption minimum")
)

type Command byte

const (
	CommandDeposit Command = iota
	CommandWithdraw
)

// DeriveVaultAuthority finds the vault address for an owner.
func DeriveVaultAuthority(owner ed25519.PublicKey) (solana.DerivedAuthority, ed25519.PublicKey, error) {
	return solana.NewDerivedAuthority(ProgramKey, vaultSeedPrefix, owner)
}

// LamportLedger is the storage-service collaborator: rent math and
// system-level lamport movement.
type LamportLedger interface {
	MinimumBalance(size int) uint64
	TransferLamports(from, to *ledger.Account, auth ledger.Authorization, lamports uint64) error
}

type Processor struct {
	log    *logrus.Entry
	system LamportLedger
}

func NewProcessor(system LamportLedger) *Processor {
	return &Processor{
		log:    logrus.StandardLogger().WithField("type", "vault/processor"),
		system: system,
	}
}

// Process routes a vault instruction. Accounts: owner (signer), vault,
// system program, then an optional padding slot.
func (p *Processor) Process(accounts []*ledger.Account, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	switch Command(data[0]) {
	case CommandDeposit:
		if len(data[1:]) != 8 {
			return program.ErrInvalidInstructionData
		}
		var amount uint64
		var offset int
		binary.GetUint64(data[1:], &amount, &offset)
		return p.deposit(accounts, amount)
	case CommandWithdraw:
		return p.withdraw(accounts)
	default:
		return program.ErrInvalidInstructionData
	}
}

func (p *Processor) parseAccounts(accounts []*ledger.Account) (owner, vault *ledger.Account, authority solana.DerivedAuthority, err error) {
	if len(accounts) < 3 {
		return nil, nil, solana.DerivedAuthority{}, program.ErrAccountCountMismatch
	}

	owner, vault = accounts[0], accounts[1]
	if err := program.CheckSigner(owner); err != nil {
		return nil, nil, solana.DerivedAuthority{}, err
	}

	authority, address, err := DeriveVaultAuthority(owner.Address)
	if err != nil {
		return nil, nil, solana.DerivedAuthority{}, errors.Wrap(err, "failed to derive vault address")
	}
	if !bytes.Equal(address, vault.Address) {
		return nil, nil, solana.DerivedAuthority{}, program.ErrInvalidAccountData
	}

	return owner, vault, authority, nil
}

func (p *Processor) deposit(accounts []*ledger.Account, amount uint64) error {
	owner, vault, _, err := p.parseAccounts(accounts)
	if err != nil {
		return err
	}

	if vault.Lamports > 0 {
		return ErrVaultAlreadyExists
	}
	if amount <= p.system.MinimumBalance(0) {
		return ErrInvalidAmount
	}

	if err := p.system.TransferLamports(owner, vault, ledger.SignedBy{Account: owner}, amount); err != nil {
		return err
	}

	p.log.WithField("amount", amount).Debug("deposited into vault")
	return nil
}

func (p *Processor) withdraw(accounts []*ledger.Account) error {
	owner, vault, authority, err := p.parseAccounts(accounts)
	if err != nil {
		return err
	}

	if vault.Lamports == 0 {
		return program.ErrUninitializedAccount
	}

	// The vault has no private key; the withdrawal is authorized by
	// reproducing its derivation from the owner's address.
	if err := p.system.TransferLamports(vault, owner, authority, vault.Lamports); err != nil {
		return err
	}

	p.log.Debug("withdrew vault balance")
	return nil
}

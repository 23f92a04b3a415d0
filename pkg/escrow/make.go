package escrow

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

type makeAccounts struct {
	maker       *ledger.Account
	escrow      *ledger.Account
	mintA       *ledger.Account
	mintB       *ledger.Account
	makerTokenA *ledger.Account
	vault       *ledger.Account
}

func parseMakeAccounts(accounts []*ledger.Account) (*makeAccounts, error) {
	// maker, escrow, mint_a, mint_b, maker_token_a, vault, system program,
	// token program, then an optional padding slot.
	if len(accounts) < 8 {
		return nil, program.ErrAccountCountMismatch
	}

	parsed := &makeAccounts{
		maker:       accounts[0],
		escrow:      accounts[1],
		mintA:       accounts[2],
		mintB:       accounts[3],
		makerTokenA: accounts[4],
		vault:       accounts[5],
	}

	if err := program.CheckSigner(parsed.maker); err != nil {
		return nil, err
	}
	if err := program.CheckMint(parsed.mintA); err != nil {
		return nil, err
	}
	if err := program.CheckMint(parsed.mintB); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.makerTokenA, parsed.maker.Address, parsed.mintA.Address); err != nil {
		return nil, err
	}

	return parsed, nil
}

// make opens a new escrow: it allocates the record, creates the vault with
// the escrow's derived address as its sole authority, populates the record
// in one write, and locks the maker's deposit in the vault.
func (p *Processor) make(accounts []*ledger.Account, args *MakeInstructionArgs) error {
	parsed, err := parseMakeAccounts(accounts)
	if err != nil {
		return err
	}

	authority, address, err := DeriveEscrowAuthority(parsed.maker.Address, args.Seed)
	if err != nil {
		return errors.Wrap(err, "failed to derive escrow address")
	}
	if !bytes.Equal(address, parsed.escrow.Address) {
		return program.ErrInvalidAccountData
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vault, parsed.escrow.Address, parsed.mintA.Address); err != nil {
		return err
	}

	// The escrow address has no private key; its creation is signed via
	// the derived seed list.
	err = p.system.CreateAccount(
		parsed.maker,
		parsed.escrow,
		p.system.MinimumBalance(EscrowAccountSize),
		EscrowAccountSize,
		ProgramKey,
		authority,
	)
	if err != nil {
		return errors.Wrap(err, "failed to allocate escrow record")
	}

	if _, err := p.token.CreateAssociatedAccount(parsed.maker, parsed.escrow.Address, parsed.mintA.Address); err != nil {
		return errors.Wrap(err, "failed to create vault")
	}

	state := EscrowAccount{
		Seed:    args.Seed,
		Maker:   parsed.maker.Address,
		MintA:   parsed.mintA.Address,
		MintB:   parsed.mintB.Address,
		Receive: args.Receive,
		Bump:    authority.Bump,
	}
	copy(parsed.escrow.Data, state.Marshal())

	err = p.token.Transfer(
		parsed.makerTokenA,
		parsed.vault,
		ledger.SignedBy{Account: parsed.maker},
		args.Amount,
	)
	if err != nil {
		return errors.Wrap(err, "failed to deposit into vault")
	}

	p.log.WithField("escrow", state.String()).Debug("opened escrow")
	return nil
}

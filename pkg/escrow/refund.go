package escrow

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

type refundAccounts struct {
	maker       *ledger.Account
	escrow      *ledger.Account
	mintA       *ledger.Account
	vault       *ledger.Account
	makerTokenA *ledger.Account
}

func parseRefundAccounts(accounts []*ledger.Account) (*refundAccounts, error) {
	// maker, escrow, mint_a, vault, maker_token_a, system program, token
	// program, then an optional padding slot.
	if len(accounts) < 7 {
		return nil, program.ErrAccountCountMismatch
	}

	parsed := &refundAccounts{
		maker:       accounts[0],
		escrow:      accounts[1],
		mintA:       accounts[2],
		vault:       accounts[3],
		makerTokenA: accounts[4],
	}

	if err := program.CheckSigner(parsed.maker); err != nil {
		return nil, err
	}
	if err := program.CheckOwnedBy(parsed.escrow, ProgramKey, EscrowAccountSize); err != nil {
		return nil, err
	}
	if err := program.CheckMint(parsed.mintA); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vault, parsed.escrow.Address, parsed.mintA.Address); err != nil {
		return nil, err
	}

	return parsed, nil
}

// refund cancels the escrow: the maker reclaims the vault's entire locked
// balance and both accounts are destroyed, deposits returned to the maker.
//
// Authorization rests on re-derivation: the supplied signer is used as the
// maker seed, so anyone but the recorded maker produces an address that
// does not match the escrow account's. The recorded maker field is checked
// against the signer as well.
func (p *Processor) refund(accounts []*ledger.Account) error {
	parsed, err := parseRefundAccounts(accounts)
	if err != nil {
		return err
	}

	var state EscrowAccount
	if err := state.Unmarshal(parsed.escrow.Data); err != nil {
		return err
	}

	authority := state.Authority(parsed.maker.Address)
	if !authority.Authorizes(parsed.escrow.Address) {
		return program.ErrInvalidAccountData
	}
	if !bytes.Equal(state.Maker, parsed.maker.Address) {
		return program.ErrInvalidAccountData
	}
	if !bytes.Equal(state.MintA, parsed.mintA.Address) {
		return program.ErrInvalidAccountData
	}

	makerTokenA, err := p.token.CreateAssociatedAccountIfNeeded(parsed.maker, parsed.maker.Address, parsed.mintA.Address)
	if err != nil {
		return errors.Wrap(err, "failed to create maker token account")
	}
	if !bytes.Equal(makerTokenA.Address, parsed.makerTokenA.Address) {
		return program.ErrInvalidAccountData
	}

	locked, err := p.token.Balance(parsed.vault)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(parsed.vault, parsed.makerTokenA, authority, locked); err != nil {
		return errors.Wrap(err, "failed to reclaim vault balance")
	}

	if err := p.token.CloseAccount(parsed.vault, parsed.maker, authority); err != nil {
		return errors.Wrap(err, "failed to close vault")
	}
	p.system.Deallocate(parsed.escrow, parsed.maker)

	p.log.WithField("escrow", state.String()).Debug("refunded escrow")
	return nil
}

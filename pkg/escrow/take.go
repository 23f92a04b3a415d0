package escrow

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

type takeAccounts struct {
	taker       *ledger.Account
	maker       *ledger.Account
	escrow      *ledger.Account
	mintA       *ledger.Account
	mintB       *ledger.Account
	vault       *ledger.Account
	takerTokenA *ledger.Account
	takerTokenB *ledger.Account
	makerTokenB *ledger.Account
}

func parseTakeAccounts(accounts []*ledger.Account) (*takeAccounts, error) {
	// taker, maker, escrow, mint_a, mint_b, vault, taker_token_a,
	// taker_token_b, maker_token_b, system program, token program, then an
	// optional padding slot.
	if len(accounts) < 11 {
		return nil, program.ErrAccountCountMismatch
	}

	parsed := &takeAccounts{
		taker:       accounts[0],
		maker:       accounts[1],
		escrow:      accounts[2],
		mintA:       accounts[3],
		mintB:       accounts[4],
		vault:       accounts[5],
		takerTokenA: accounts[6],
		takerTokenB: accounts[7],
		makerTokenB: accounts[8],
	}

	if err := program.CheckSigner(parsed.taker); err != nil {
		return nil, err
	}
	if err := program.CheckOwnedBy(parsed.escrow, ProgramKey, EscrowAccountSize); err != nil {
		return nil, err
	}
	if err := program.CheckMint(parsed.mintA); err != nil {
		return nil, err
	}
	if err := program.CheckMint(parsed.mintB); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.takerTokenB, parsed.taker.Address, parsed.mintB.Address); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vault, parsed.escrow.Address, parsed.mintA.Address); err != nil {
		return nil, err
	}

	return parsed, nil
}

// take completes the swap: the taker pays the recorded amount of mint_b to
// the maker, receives the vault's entire locked mint_a balance, and both
// the vault and the escrow record are destroyed with their storage
// deposits returned to the maker.
func (p *Processor) take(accounts []*ledger.Account) error {
	parsed, err := parseTakeAccounts(accounts)
	if err != nil {
		return err
	}

	var state EscrowAccount
	if err := state.Unmarshal(parsed.escrow.Data); err != nil {
		return err
	}

	// Re-derive the escrow address from the record's own fields and the
	// supplied maker. A forged or substituted escrow account cannot
	// reproduce the address of the real one.
	authority := state.Authority(parsed.maker.Address)
	if !authority.Authorizes(parsed.escrow.Address) {
		return program.ErrInvalidAccountData
	}

	// The supplied mints must be the recorded ones. Without this, a taker
	// could satisfy the trade with a substitute asset of their own.
	if !bytes.Equal(state.MintA, parsed.mintA.Address) || !bytes.Equal(state.MintB, parsed.mintB.Address) {
		return program.ErrInvalidAccountData
	}

	takerTokenA, err := p.token.CreateAssociatedAccountIfNeeded(parsed.taker, parsed.taker.Address, parsed.mintA.Address)
	if err != nil {
		return errors.Wrap(err, "failed to create taker token account")
	}
	if !bytes.Equal(takerTokenA.Address, parsed.takerTokenA.Address) {
		return program.ErrInvalidAccountData
	}

	makerTokenB, err := p.token.CreateAssociatedAccountIfNeeded(parsed.taker, parsed.maker.Address, parsed.mintB.Address)
	if err != nil {
		return errors.Wrap(err, "failed to create maker token account")
	}
	if !bytes.Equal(makerTokenB.Address, parsed.makerTokenB.Address) {
		return program.ErrInvalidAccountData
	}

	// Collect the counter-asset before releasing the locked asset. The
	// recorded receive amount is used, never a client-supplied figure.
	err = p.token.Transfer(
		parsed.takerTokenB,
		parsed.makerTokenB,
		ledger.SignedBy{Account: parsed.taker},
		state.Receive,
	)
	if err != nil {
		return errors.Wrap(err, "failed to pay maker")
	}

	// Release the vault's full balance to the taker, signing as the
	// escrow's derived authority.
	locked, err := p.token.Balance(parsed.vault)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(parsed.vault, parsed.takerTokenA, authority, locked); err != nil {
		return errors.Wrap(err, "failed to release vault")
	}

	if err := p.token.CloseAccount(parsed.vault, parsed.maker, authority); err != nil {
		return errors.Wrap(err, "failed to close vault")
	}
	p.system.Deallocate(parsed.escrow, parsed.maker)

	p.log.WithField("escrow", state.String()).Debug("completed swap")
	return nil
}

// Package amm implements the simplified sibling market-maker: pooled
// deposits against an LP mint and fixed-amount swaps between two vaults.
// It performs no pricing-curve math; amounts are caller-capped and the
// recorded fee is carried, not computed with. The hard logic lives in the
// escrow package; this program exists to exercise the shared
// authorization primitives, including mint and burn.
package amm

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

// AccountAllocator is the storage-allocation collaborator.
type AccountAllocator interface {
	MinimumBalance(size int) uint64
	CreateAccount(payer, account *ledger.Account, lamports, space uint64, owner ed25519.PublicKey, auth ledger.Authorization) error
}

// TokenLedger is the asset-ledger collaborator, including the mint and
// burn operations the escrow program itself never uses.
type TokenLedger interface {
	Transfer(source, dest *ledger.Account, auth ledger.Authorization, amount uint64) error
	MintTo(mint, dest *ledger.Account, auth ledger.Authorization, amount uint64) error
	Burn(account, mint *ledger.Account, auth ledger.Authorization, amount uint64) error
	CreateMint(payer *ledger.Account, address, authority ed25519.PublicKey, decimals uint8) (*ledger.Account, error)
}

type Processor struct {
	log    *logrus.Entry
	system AccountAllocator
	token  TokenLedger
}

func NewProcessor(system AccountAllocator, token TokenLedger) *Processor {
	return &Processor{
		log:    logrus.StandardLogger().WithField("type", "amm/processor"),
		system: system,
		token:  token,
	}
}

func (p *Processor) Process(accounts []*ledger.Account, data []byte) error {
	if len(data) == 0 {
		return program.ErrInvalidInstructionData
	}

	switch Command(data[0]) {
	case CommandInitialize:
		var args InitializeInstructionArgs
		if err := args.Unmarshal(data[1:]); err != nil {
			return err
		}
		return p.initialize(accounts, &args)
	case CommandDeposit:
		var args DepositInstructionArgs
		if err := args.Unmarshal(data[1:]); err != nil {
			return err
		}
		return p.deposit(accounts, &args)
	case CommandWithdraw:
		var args WithdrawInstructionArgs
		if err := args.Unmarshal(data[1:]); err != nil {
			return err
		}
		return p.withdraw(accounts, &args)
	case CommandSwap:
		var args SwapInstructionArgs
		if err := args.Unmarshal(data[1:]); err != nil {
			return err
		}
		return p.swap(accounts, &args)
	default:
		return program.ErrInvalidInstructionData
	}
}

// initialize creates the pool record and its LP mint, both addressed by
// derived authorities. Accounts: initializer (signer), config, lp mint,
// system program, token program.
func (p *Processor) initialize(accounts []*ledger.Account, args *InitializeInstructionArgs) error {
	if len(accounts) < 5 {
		return program.ErrAccountCountMismatch
	}
	initializer, config, lpMint := accounts[0], accounts[1], accounts[2]

	if err := program.CheckSigner(initializer); err != nil {
		return err
	}

	configAuthority, configAddress, err := DeriveConfigAuthority(args.Seed, args.MintX, args.MintY)
	if err != nil {
		return errors.Wrap(err, "failed to derive pool address")
	}
	if !bytes.Equal(configAddress, config.Address) {
		return program.ErrInvalidAccountData
	}

	_, lpAddress, err := DeriveLPMintAuthority(configAddress)
	if err != nil {
		return errors.Wrap(err, "failed to derive lp mint address")
	}
	if !bytes.Equal(lpAddress, lpMint.Address) {
		return program.ErrInvalidAccountData
	}

	err = p.system.CreateAccount(
		initializer,
		config,
		p.system.MinimumBalance(ConfigAccountSize),
		ConfigAccountSize,
		ProgramKey,
		configAuthority,
	)
	if err != nil {
		return errors.Wrap(err, "failed to allocate pool record")
	}

	state := ConfigAccount{
		State:     PoolStateInitialized,
		Seed:      args.Seed,
		Authority: args.Authority,
		MintX:     args.MintX,
		MintY:     args.MintY,
		Fee:       args.Fee,
		Bump:      configAuthority.Bump,
	}
	copy(config.Data, state.Marshal())

	if _, err := p.token.CreateMint(initializer, lpAddress, configAddress, 6); err != nil {
		return errors.Wrap(err, "failed to create lp mint")
	}

	p.log.WithField("config", state.String()).Debug("initialized pool")
	return nil
}

type poolAccounts struct {
	user   *ledger.Account
	config *ledger.Account
	lpMint *ledger.Account
	vaultX *ledger.Account
	vaultY *ledger.Account
	userX  *ledger.Account
	userY  *ledger.Account
	userLP *ledger.Account

	state ConfigAccount
}

// Accounts: user (signer), config, lp mint, vault_x, vault_y, user_x,
// user_y, user_lp, token program.
func (p *Processor) parsePoolAccounts(accounts []*ledger.Account) (*poolAccounts, error) {
	if len(accounts) < 9 {
		return nil, program.ErrAccountCountMismatch
	}

	parsed := &poolAccounts{
		user:   accounts[0],
		config: accounts[1],
		lpMint: accounts[2],
		vaultX: accounts[3],
		vaultY: accounts[4],
		userX:  accounts[5],
		userY:  accounts[6],
		userLP: accounts[7],
	}

	if err := program.CheckSigner(parsed.user); err != nil {
		return nil, err
	}
	if err := program.CheckOwnedBy(parsed.config, ProgramKey, ConfigAccountSize); err != nil {
		return nil, err
	}
	if err := parsed.state.Unmarshal(parsed.config.Data); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vaultX, parsed.config.Address, parsed.state.MintX); err != nil {
		return nil, err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vaultY, parsed.config.Address, parsed.state.MintY); err != nil {
		return nil, err
	}

	return parsed, nil
}

// deposit moves the caller-capped amounts into both vaults and mints LP
// one-for-one against the requested amount.
func (p *Processor) deposit(accounts []*ledger.Account, args *DepositInstructionArgs) error {
	parsed, err := p.parsePoolAccounts(accounts)
	if err != nil {
		return err
	}
	if !parsed.state.IsInitialized() {
		return program.ErrUninitializedAccount
	}

	userAuth := ledger.SignedBy{Account: parsed.user}
	if err := p.token.Transfer(parsed.userX, parsed.vaultX, userAuth, args.MaxX); err != nil {
		return err
	}
	if err := p.token.Transfer(parsed.userY, parsed.vaultY, userAuth, args.MaxY); err != nil {
		return err
	}

	return p.token.MintTo(parsed.lpMint, parsed.userLP, parsed.state.ConfigAuthority(), args.Amount)
}

// withdraw burns LP and releases the caller-priced amounts from the
// vaults, signed by the pool's derived authority.
func (p *Processor) withdraw(accounts []*ledger.Account, args *WithdrawInstructionArgs) error {
	parsed, err := p.parsePoolAccounts(accounts)
	if err != nil {
		return err
	}
	if !parsed.state.CanWithdraw() {
		return program.ErrInvalidAccountData
	}

	if err := p.token.Burn(parsed.userLP, parsed.lpMint, ledger.SignedBy{Account: parsed.user}, args.Amount); err != nil {
		return err
	}

	configAuthority := parsed.state.ConfigAuthority()
	if err := p.token.Transfer(parsed.vaultX, parsed.userX, configAuthority, args.MinX); err != nil {
		return err
	}
	return p.token.Transfer(parsed.vaultY, parsed.userY, configAuthority, args.MinY)
}

type swapAccounts struct {
	user   *ledger.Account
	config *ledger.Account
	vaultX *ledger.Account
	vaultY *ledger.Account
	userX  *ledger.Account
	userY  *ledger.Account

	state ConfigAccount
}

// swap moves the input amount into one vault and the caller-priced output
// out of the other. Accounts: user (signer), config, vault_x, vault_y,
// user_x, user_y, token program.
func (p *Processor) swap(accounts []*ledger.Account, args *SwapInstructionArgs) error {
	if len(accounts) < 7 {
		return program.ErrAccountCountMismatch
	}

	parsed := &swapAccounts{
		user:   accounts[0],
		config: accounts[1],
		vaultX: accounts[2],
		vaultY: accounts[3],
		userX:  accounts[4],
		userY:  accounts[5],
	}

	if err := program.CheckSigner(parsed.user); err != nil {
		return err
	}
	if err := program.CheckOwnedBy(parsed.config, ProgramKey, ConfigAccountSize); err != nil {
		return err
	}
	if err := parsed.state.Unmarshal(parsed.config.Data); err != nil {
		return err
	}
	if !parsed.state.IsInitialized() {
		return program.ErrUninitializedAccount
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vaultX, parsed.config.Address, parsed.state.MintX); err != nil {
		return err
	}
	if err := program.CheckAssociatedTokenAccount(parsed.vaultY, parsed.config.Address, parsed.state.MintY); err != nil {
		return err
	}

	userAuth := ledger.SignedBy{Account: parsed.user}
	configAuthority := parsed.state.ConfigAuthority()

	if args.IsX {
		if err := p.token.Transfer(parsed.userX, parsed.vaultX, userAuth, args.Amount); err != nil {
			return err
		}
		return p.token.Transfer(parsed.vaultY, parsed.userY, configAuthority, args.Min)
	}

	if err := p.token.Transfer(parsed.userY, parsed.vaultY, userAuth, args.Amount); err != nil {
		return err
	}
	return p.token.Transfer(parsed.vaultX, parsed.userX, configAuthority, args.Min)
}

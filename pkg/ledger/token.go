package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/escrowhq/escrow-server/pkg/solana"
	"github.com/escrowhq/escrow-server/pkg/solana/token"
)

var (
	ErrInvalidTokenAccount = errors.New("invalid token account")
	ErrInvalidMint         = errors.New("invalid mint")
	ErrMintMismatch        = errors.New("token account mint mismatch")
	ErrNonEmptyAccount     = errors.New("token account balance must be zero")
)

// TokenService is the asset-ledger collaborator: transfer, mint, burn and
// account-close operations over token accounts held in the ledger. Every
// mutating operation demands an Authorization for the relevant authority,
// which is how both ordinary signers and derived (keyless) authorities act
// on token accounts through one code path.
type TokenService struct {
	log    *logrus.Entry
	ledger *Ledger
}

func NewTokenService(l *Ledger) *TokenService {
	return &TokenService{
		log:    logrus.StandardLogger().WithField("type", "ledger/token"),
		ledger: l,
	}
}

// CreateMint registers a new mint with the given authority. The payer
// funds the mint account's storage deposit.
func (s *TokenService) CreateMint(payer *Account, address, authority ed25519.PublicKey, decimals uint8) (*Account, error) {
	account := s.ledger.Account(address)
	if account.IsAllocated() {
		return nil, ErrAccountInUse
	}
	if !(SignedBy{Account: payer}).Authorizes(payer.Address) {
		return nil, errors.Wrap(ErrUnauthorized, "payer must sign")
	}

	lamports := s.ledger.MinimumBalance(token.MintSize)
	if payer.Lamports < lamports {
		return nil, ErrInsufficientFunds
	}

	mint := token.Mint{
		MintAuthority: authority,
		Decimals:      decimals,
		IsInitialized: true,
	}

	payer.Lamports -= lamports
	account.Lamports = lamports
	account.Owner = token.ProgramKey
	account.Data = mint.Marshal()

	return account, nil
}

// CreateAssociatedAccount allocates and initializes the associated token
// account for (wallet, mint), funded by payer. The account's address is
// recomputed here; the associated-account program signs for the new
// account via its own derived authority.
func (s *TokenService) CreateAssociatedAccount(payer *Account, wallet, mint ed25519.PublicKey) (*Account, error) {
	address, bump, err := solana.FindProgramAddressAndBump(
		token.AssociatedTokenAccountProgramKey,
		wallet,
		token.ProgramKey,
		mint,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive associated account")
	}

	account := s.ledger.Account(address)
	auth := solana.DerivedAuthority{
		Program: token.AssociatedTokenAccountProgramKey,
		Seeds:   [][]byte{wallet, token.ProgramKey, mint},
		Bump:    bump,
	}

	err = s.ledger.CreateAccount(payer, account, s.ledger.MinimumBalance(token.AccountSize), token.AccountSize, token.ProgramKey, auth)
	if err != nil {
		return nil, err
	}

	if err := s.initializeAccount(account, mint, wallet); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account": account.String(),
	}).Trace("created associated token account")

	return account, nil
}

// CreateAssociatedAccountIfNeeded is CreateAssociatedAccount, tolerating an
// already-initialized associated account.
func (s *TokenService) CreateAssociatedAccountIfNeeded(payer *Account, wallet, mint ed25519.PublicKey) (*Account, error) {
	address, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		return nil, err
	}

	account := s.ledger.Account(address)
	if account.IsAllocated() {
		state, err := s.loadAccount(account)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(state.Mint, mint) {
			return nil, ErrMintMismatch
		}
		return account, nil
	}

	return s.CreateAssociatedAccount(payer, wallet, mint)
}

func (s *TokenService) initializeAccount(account *Account, mint, owner ed25519.PublicKey) error {
	mintAccount := s.ledger.Account(mint)
	var mintState token.Mint
	if !bytes.Equal(mintAccount.Owner, token.ProgramKey) || !mintState.Unmarshal(mintAccount.Data) || !mintState.IsInitialized {
		return ErrInvalidMint
	}

	state := token.Account{
		Mint:  mint,
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	copy(account.Data, state.Marshal())
	return nil
}

// Transfer moves amount from source to dest. The authorization must cover
// the source account's recorded owner.
func (s *TokenService) Transfer(source, dest *Account, auth Authorization, amount uint64) error {
	sourceState, err := s.loadAccount(source)
	if err != nil {
		return err
	}
	destState, err := s.loadAccount(dest)
	if err != nil {
		return err
	}

	if !bytes.Equal(sourceState.Mint, destState.Mint) {
		return ErrMintMismatch
	}
	if auth == nil || !auth.Authorizes(sourceState.Owner) {
		return ErrUnauthorized
	}
	if sourceState.Amount < amount {
		return ErrInsufficientFunds
	}

	sourceState.Amount -= amount
	destState.Amount += amount
	copy(source.Data, sourceState.Marshal())
	copy(dest.Data, destState.Marshal())

	s.log.WithFields(logrus.Fields{
		"source": source.String(),
		"dest":   dest.String(),
		"amount": amount,
	}).Trace("transferred tokens")

	return nil
}

// MintTo creates amount new tokens in dest. The authorization must cover
// the mint's recorded mint authority.
func (s *TokenService) MintTo(mint, dest *Account, auth Authorization, amount uint64) error {
	var mintState token.Mint
	if !bytes.Equal(mint.Owner, token.ProgramKey) || !mintState.Unmarshal(mint.Data) || !mintState.IsInitialized {
		return ErrInvalidMint
	}

	destState, err := s.loadAccount(dest)
	if err != nil {
		return err
	}
	if !bytes.Equal(destState.Mint, mint.Address) {
		return ErrMintMismatch
	}
	if auth == nil || !auth.Authorizes(mintState.MintAuthority) {
		return ErrUnauthorized
	}

	mintState.Supply += amount
	destState.Amount += amount
	copy(mint.Data, mintState.Marshal())
	copy(dest.Data, destState.Marshal())

	return nil
}

// Burn destroys amount tokens held by account. The authorization must
// cover the token account's recorded owner.
func (s *TokenService) Burn(account, mint *Account, auth Authorization, amount uint64) error {
	state, err := s.loadAccount(account)
	if err != nil {
		return err
	}
	var mintState token.Mint
	if !bytes.Equal(mint.Owner, token.ProgramKey) || !mintState.Unmarshal(mint.Data) || !mintState.IsInitialized {
		return ErrInvalidMint
	}
	if !bytes.Equal(state.Mint, mint.Address) {
		return ErrMintMismatch
	}
	if auth == nil || !auth.Authorizes(state.Owner) {
		return ErrUnauthorized
	}
	if state.Amount < amount {
		return ErrInsufficientFunds
	}

	state.Amount -= amount
	mintState.Supply -= amount
	copy(account.Data, state.Marshal())
	copy(mint.Data, mintState.Marshal())

	return nil
}

// CloseAccount destroys an empty token account, returning its storage
// deposit to destination. The authorization must cover the token account's
// recorded owner.
func (s *TokenService) CloseAccount(account, destination *Account, auth Authorization) error {
	state, err := s.loadAccount(account)
	if err != nil {
		return err
	}
	if auth == nil || !auth.Authorizes(state.Owner) {
		return ErrUnauthorized
	}
	if state.Amount != 0 {
		return ErrNonEmptyAccount
	}

	s.ledger.Deallocate(account, destination)
	return nil
}

// Balance reads the recorded amount of a token account.
func (s *TokenService) Balance(account *Account) (uint64, error) {
	state, err := s.loadAccount(account)
	if err != nil {
		return 0, err
	}
	return state.Amount, nil
}

func (s *TokenService) loadAccount(account *Account) (*token.Account, error) {
	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return nil, ErrInvalidTokenAccount
	}

	var state token.Account
	if !state.Unmarshal(account.Data) {
		return nil, ErrInvalidTokenAccount
	}
	if state.State != token.AccountStateInitialized {
		return nil, ErrInvalidTokenAccount
	}
	return &state, nil
}

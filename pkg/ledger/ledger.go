package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInUse      = errors.New("account already in use")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotRentExempt     = errors.New("lamports below rent-exemption minimum")
	ErrUnauthorized      = errors.New("missing authorization")
)

const (
	// Matches the host runtime's rent model: a per-byte-year rate applied
	// to the account size plus a fixed storage overhead, with two years
	// required up front for rent exemption.
	lamportsPerByteYear    = 3480
	accountStorageOverhead = 128
	rentExemptionYears     = 2
)

// Ledger is an in-memory account registry with the host-runtime semantics
// the escrow protocol relies on: storage allocation against a deposit,
// destructive deallocation, and all-or-nothing instruction execution.
//
// A Ledger is not safe for concurrent use. The host serializes any two
// instructions whose account sets overlap, which is the property this
// single-threaded model preserves.
type Ledger struct {
	log      *logrus.Entry
	accounts map[string]*Account
}

func New() *Ledger {
	return &Ledger{
		log:      logrus.StandardLogger().WithField("type", "ledger/ledger"),
		accounts: make(map[string]*Account),
	}
}

// Account returns the live view for an address, registering an empty
// system-owned account on first reference. Callers always observe the same
// *Account for the same address.
func (l *Ledger) Account(address ed25519.PublicKey) *Account {
	if existing, ok := l.accounts[string(address)]; ok {
		return existing
	}

	account := &Account{
		Address: append(ed25519.PublicKey{}, address...),
		Owner:   SystemOwner,
	}
	l.accounts[string(address)] = account
	return account
}

// CreditLamports funds an account directly. This is the faucet edge of the
// model; real deposits arrive from outside the protocol's scope.
func (l *Ledger) CreditLamports(address ed25519.PublicKey, lamports uint64) *Account {
	account := l.Account(address)
	account.Lamports += lamports
	return account
}

// MinimumBalance returns the deposit required to keep an account of the
// given data size resident in durable storage.
func (l *Ledger) MinimumBalance(size int) uint64 {
	return uint64(accountStorageOverhead+size) * lamportsPerByteYear * rentExemptionYears
}

// CreateAccount allocates storage for a new account: the payer funds the
// deposit, the account receives a zeroed buffer of the requested size, and
// ownership passes to the given program.
//
// The new account itself must authorize its creation, either by having
// signed the transaction or through a derived authority reproducing its
// address; that is how keyless program-derived accounts are brought to
// life.
func (l *Ledger) CreateAccount(payer, account *Account, lamports, space uint64, owner ed25519.PublicKey, auth Authorization) error {
	if account.IsAllocated() {
		return ErrAccountInUse
	}
	if !(SignedBy{Account: payer}).Authorizes(payer.Address) {
		return errors.Wrap(ErrUnauthorized, "payer must sign")
	}
	if auth == nil || !auth.Authorizes(account.Address) {
		return errors.Wrap(ErrUnauthorized, "new account must authorize its creation")
	}
	if lamports < l.MinimumBalance(int(space)) {
		return ErrNotRentExempt
	}
	if payer.Lamports < lamports {
		return ErrInsufficientFunds
	}

	payer.Lamports -= lamports
	account.Lamports = lamports
	account.Data = make([]byte, space)
	account.Owner = append(ed25519.PublicKey{}, owner...)

	l.log.WithFields(logrus.Fields{
		"account": account.String(),
		"size":    space,
	}).Trace("allocated account")

	return nil
}

// TransferLamports moves lamports between system-owned accounts. The
// source must authorize the transfer, either by signature or through a
// derived authority reproducing its address.
func (l *Ledger) TransferLamports(from, to *Account, auth Authorization, lamports uint64) error {
	if !bytes.Equal(from.Owner, SystemOwner) {
		return errors.Wrap(ErrUnauthorized, "source is not system owned")
	}
	if auth == nil || !auth.Authorizes(from.Address) {
		return ErrUnauthorized
	}
	if from.Lamports < lamports {
		return ErrInsufficientFunds
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// Deallocate destroys an account, returning its storage deposit to the
// destination. The account ceases to exist in valid form: a later attempt
// to consume it observes an empty, system-owned buffer.
func (l *Ledger) Deallocate(account, destination *Account) {
	destination.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = nil
	account.Owner = SystemOwner

	l.log.WithField("account", account.String()).Trace("deallocated account")
}

// Execute runs fn as a single indivisible unit: if it returns an error,
// every account is restored to its pre-call state and the error is
// surfaced unchanged. The protocol itself performs no rollback logic; this
// is the host's transaction model.
func (l *Ledger) Execute(fn func() error) error {
	snapshots := make(map[string]accountSnapshot, len(l.accounts))
	for key, account := range l.accounts {
		snapshots[key] = account.snapshot()
	}

	if err := fn(); err != nil {
		for key, snapshot := range snapshots {
			l.accounts[key].restore(snapshot)
		}

		// Accounts first referenced inside the failed instruction are
		// rolled back to empty.
		for key, account := range l.accounts {
			if _, ok := snapshots[key]; !ok {
				account.restore(accountSnapshot{owner: SystemOwner})
			}
		}

		l.log.WithError(err).Debug("instruction aborted, state restored")
		return err
	}

	return nil
}

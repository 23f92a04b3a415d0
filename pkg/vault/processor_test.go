package vault

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
)

func depositData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = byte(CommandDeposit)
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

func setup(t *testing.T) (*ledger.Ledger, *Processor, *ledger.Account, *ledger.Account) {
	l := ledger.New()
	p := NewProcessor(l)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	owner := l.CreditLamports(pub, 10_000_000_000)
	owner.Signer = true

	_, vaultAddress, err := DeriveVaultAuthority(owner.Address)
	require.NoError(t, err)

	return l, p, owner, l.Account(vaultAddress)
}

func TestProcessor_DepositWithdraw(t *testing.T) {
	l, p, owner, vault := setup(t)
	accounts := []*ledger.Account{owner, vault, l.Account(ledger.SystemOwner)}

	amount := l.MinimumBalance(0) + 1_000_000
	require.NoError(t, p.Process(accounts, depositData(amount)))
	assert.Equal(t, amount, vault.Lamports)

	before := owner.Lamports
	require.NoError(t, p.Process(accounts, []byte{byte(CommandWithdraw)}))
	assert.EqualValues(t, 0, vault.Lamports)
	assert.Equal(t, before+amount, owner.Lamports)
}

func TestProcessor_Deposit_Invalid(t *testing.T) {
	l, p, owner, vault := setup(t)
	accounts := []*ledger.Account{owner, vault, l.Account(ledger.SystemOwner)}

	// below the rent floor
	assert.Equal(t, ErrInvalidAmount, p.Process(accounts, depositData(l.MinimumBalance(0))))

	// double deposit
	amount := l.MinimumBalance(0) + 1_000_000
	require.NoError(t, p.Process(accounts, depositData(amount)))
	assert.Equal(t, ErrVaultAlreadyExists, p.Process(accounts, depositData(amount)))
}

func TestProcessor_Withdraw_Empty(t *testing.T) {
	l, p, owner, vault := setup(t)
	accounts := []*ledger.Account{owner, vault, l.Account(ledger.SystemOwner)}

	assert.Equal(t, program.ErrUninitializedAccount, p.Process(accounts, []byte{byte(CommandWithdraw)}))
}

func TestProcessor_WrongVault(t *testing.T) {
	l, p, owner, _ := setup(t)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	accounts := []*ledger.Account{owner, l.Account(pub), l.Account(ledger.SystemOwner)}
	amount := l.MinimumBalance(0) + 1_000_000
	assert.Equal(t, program.ErrInvalidAccountData, p.Process(accounts, depositData(amount)))
}

func TestProcessor_WrongOwner(t *testing.T) {
	l, p, owner, vault := setup(t)
	accounts := []*ledger.Account{owner, vault, l.Account(ledger.SystemOwner)}

	amount := l.MinimumBalance(0) + 1_000_000
	require.NoError(t, p.Process(accounts, depositData(amount)))

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	mallory := l.CreditLamports(pub, 1_000_000)
	mallory.Signer = true

	// The vault address does not derive from mallory's key.
	accounts = []*ledger.Account{mallory, vault, l.Account(ledger.SystemOwner)}
	assert.Equal(t, program.ErrInvalidAccountData, p.Process(accounts, []byte{byte(CommandWithdraw)}))
}

func TestProcessor_InvalidInstructionData(t *testing.T) {
	_, p, _, _ := setup(t)

	assert.Equal(t, program.ErrInvalidInstructionData, p.Process(nil, nil))
	assert.Equal(t, program.ErrInvalidInstructionData, p.Process(nil, []byte{0xff}))
	assert.Equal(t, program.ErrInvalidInstructionData, p.Process(nil, []byte{byte(CommandDeposit), 1, 2}))
}

func TestProcessor_MissingSignature(t *testing.T) {
	l, p, owner, vault := setup(t)
	owner.Signer = false

	accounts := []*ledger.Account{owner, vault, l.Account(ledger.SystemOwner)}
	amount := l.MinimumBalance(0) + 1_000_000
	assert.Equal(t, program.ErrMissingSignature, p.Process(accounts, depositData(amount)))
}

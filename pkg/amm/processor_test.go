package amm

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/program"
	"github.com/escrowhq/escrow-server/pkg/solana/token"
)

type testEnv struct {
	ledger    *ledger.Ledger
	token     *ledger.TokenService
	processor *Processor

	mintX ed25519.PublicKey
	mintY ed25519.PublicKey

	mintAuthority *ledger.Account
	user          *ledger.Account
}

func setup(t *testing.T) *testEnv {
	l := ledger.New()
	s := ledger.NewTokenService(l)

	env := &testEnv{
		ledger:    l,
		token:     s,
		processor: NewProcessor(l, s),
	}

	keys := make([]ed25519.PublicKey, 4)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	env.mintX = keys[0]
	env.mintY = keys[1]

	env.mintAuthority = l.CreditLamports(keys[2], 10_000_000_000)
	env.mintAuthority.Signer = true

	env.user = l.CreditLamports(keys[3], 100_000_000_000)
	env.user.Signer = true

	_, err := s.CreateMint(env.mintAuthority, env.mintX, env.mintAuthority.Address, 6)
	require.NoError(t, err)
	_, err = s.CreateMint(env.mintAuthority, env.mintY, env.mintAuthority.Address, 6)
	require.NoError(t, err)

	return env
}

func (env *testEnv) fund(t *testing.T, wallet, mint ed25519.PublicKey, amount uint64) *ledger.Account {
	account, err := env.token.CreateAssociatedAccountIfNeeded(env.user, wallet, mint)
	require.NoError(t, err)

	if amount > 0 {
		auth := ledger.SignedBy{Account: env.mintAuthority}
		require.NoError(t, env.token.MintTo(env.ledger.Account(mint), account, auth, amount))
	}
	return account
}

func (env *testEnv) balance(t *testing.T, account *ledger.Account) uint64 {
	balance, err := env.token.Balance(account)
	require.NoError(t, err)
	return balance
}

func initializeData(seed uint64, fee uint16, mintX, mintY, authority ed25519.PublicKey) []byte {
	data := make([]byte, 1+InitializeInstructionArgsSize)
	data[0] = byte(CommandInitialize)
	binary.LittleEndian.PutUint64(data[1:], seed)
	binary.LittleEndian.PutUint16(data[9:], fee)
	copy(data[11:], mintX)
	copy(data[43:], mintY)
	copy(data[75:], authority)
	return data
}

func depositData(amount, maxX, maxY uint64) []byte {
	data := make([]byte, 1+DepositInstructionArgsSize)
	data[0] = byte(CommandDeposit)
	binary.LittleEndian.PutUint64(data[1:], amount)
	binary.LittleEndian.PutUint64(data[9:], maxX)
	binary.LittleEndian.PutUint64(data[17:], maxY)
	return data
}

func withdrawData(amount, minX, minY uint64) []byte {
	data := make([]byte, 1+WithdrawInstructionArgsSize)
	data[0] = byte(CommandWithdraw)
	binary.LittleEndian.PutUint64(data[1:], amount)
	binary.LittleEndian.PutUint64(data[9:], minX)
	binary.LittleEndian.PutUint64(data[17:], minY)
	return data
}

func swapData(isX bool, amount, min uint64) []byte {
	data := make([]byte, 1+SwapInstructionArgsSize)
	data[0] = byte(CommandSwap)
	if isX {
		data[1] = 1
	}
	binary.LittleEndian.PutUint64(data[2:], amount)
	binary.LittleEndian.PutUint64(data[10:], min)
	return data
}

// initializePool runs Initialize and creates the pool's vault accounts,
// returning the config account and the lp mint address.
func (env *testEnv) initializePool(t *testing.T, seed uint64, fee uint16) (*ledger.Account, ed25519.PublicKey) {
	_, configAddress, err := DeriveConfigAuthority(seed, env.mintX, env.mintY)
	require.NoError(t, err)
	_, lpAddress, err := DeriveLPMintAuthority(configAddress)
	require.NoError(t, err)

	accounts := []*ledger.Account{
		env.user,
		env.ledger.Account(configAddress),
		env.ledger.Account(lpAddress),
		env.ledger.Account(ledger.SystemOwner),
		env.ledger.Account(token.ProgramKey),
	}
	require.NoError(t, env.processor.Process(accounts, initializeData(seed, fee, env.mintX, env.mintY, env.user.Address)))

	_, err = env.token.CreateAssociatedAccount(env.user, configAddress, env.mintX)
	require.NoError(t, err)
	_, err = env.token.CreateAssociatedAccount(env.user, configAddress, env.mintY)
	require.NoError(t, err)

	return env.ledger.Account(configAddress), lpAddress
}

func (env *testEnv) poolAccounts(t *testing.T, config *ledger.Account, lpAddress ed25519.PublicKey) []*ledger.Account {
	vaultX, err := token.GetAssociatedAccount(config.Address, env.mintX)
	require.NoError(t, err)
	vaultY, err := token.GetAssociatedAccount(config.Address, env.mintY)
	require.NoError(t, err)
	userX, err := token.GetAssociatedAccount(env.user.Address, env.mintX)
	require.NoError(t, err)
	userY, err := token.GetAssociatedAccount(env.user.Address, env.mintY)
	require.NoError(t, err)
	userLP, err := token.GetAssociatedAccount(env.user.Address, lpAddress)
	require.NoError(t, err)

	return []*ledger.Account{
		env.user,
		config,
		env.ledger.Account(lpAddress),
		env.ledger.Account(vaultX),
		env.ledger.Account(vaultY),
		env.ledger.Account(userX),
		env.ledger.Account(userY),
		env.ledger.Account(userLP),
		env.ledger.Account(token.ProgramKey),
	}
}

func TestProcessor_Initialize(t *testing.T) {
	env := setup(t)

	config, lpAddress := env.initializePool(t, 1, 30)

	assert.EqualValues(t, ProgramKey, config.Owner)
	require.Len(t, config.Data, ConfigAccountSize)

	var state ConfigAccount
	require.NoError(t, state.Unmarshal(config.Data))
	assert.Equal(t, PoolStateInitialized, state.State)
	assert.EqualValues(t, 1, state.Seed)
	assert.EqualValues(t, env.user.Address, state.Authority)
	assert.EqualValues(t, env.mintX, state.MintX)
	assert.EqualValues(t, env.mintY, state.MintY)
	assert.EqualValues(t, 30, state.Fee)
	assert.True(t, state.ConfigAuthority().Authorizes(config.Address))

	lpMint := env.ledger.Account(lpAddress)
	assert.EqualValues(t, token.ProgramKey, lpMint.Owner)

	var mintState token.Mint
	require.True(t, mintState.Unmarshal(lpMint.Data))
	assert.EqualValues(t, config.Address, mintState.MintAuthority)
}

func TestProcessor_Initialize_InvalidArgs(t *testing.T) {
	env := setup(t)

	// fee over 100%
	data := initializeData(1, maxFeeBasisPoints+1, env.mintX, env.mintY, env.user.Address)
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, data))

	// identical mints
	data = initializeData(1, 30, env.mintX, env.mintX, env.user.Address)
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, data))
}

func TestProcessor_Initialize_ForgedConfig(t *testing.T) {
	env := setup(t)

	forged, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, lpAddress, err := DeriveLPMintAuthority(forged)
	require.NoError(t, err)

	accounts := []*ledger.Account{
		env.user,
		env.ledger.Account(forged),
		env.ledger.Account(lpAddress),
		env.ledger.Account(ledger.SystemOwner),
		env.ledger.Account(token.ProgramKey),
	}
	data := initializeData(1, 30, env.mintX, env.mintY, env.user.Address)
	assert.Equal(t, program.ErrInvalidAccountData, env.processor.Process(accounts, data))
}

func TestProcessor_DepositWithdraw(t *testing.T) {
	env := setup(t)

	config, lpAddress := env.initializePool(t, 1, 30)

	userX := env.fund(t, env.user.Address, env.mintX, 10_000)
	userY := env.fund(t, env.user.Address, env.mintY, 10_000)
	userLP := env.fund(t, env.user.Address, lpAddress, 0)

	accounts := env.poolAccounts(t, config, lpAddress)

	require.NoError(t, env.processor.Process(accounts, depositData(100, 2000, 3000)))
	assert.EqualValues(t, 8000, env.balance(t, userX))
	assert.EqualValues(t, 7000, env.balance(t, userY))
	assert.EqualValues(t, 100, env.balance(t, userLP))
	assert.EqualValues(t, 2000, env.balance(t, accounts[3]))
	assert.EqualValues(t, 3000, env.balance(t, accounts[4]))

	require.NoError(t, env.processor.Process(accounts, withdrawData(100, 2000, 3000)))
	assert.EqualValues(t, 10_000, env.balance(t, userX))
	assert.EqualValues(t, 10_000, env.balance(t, userY))
	assert.EqualValues(t, 0, env.balance(t, userLP))
}

func TestProcessor_Swap(t *testing.T) {
	env := setup(t)

	config, lpAddress := env.initializePool(t, 1, 30)

	userX := env.fund(t, env.user.Address, env.mintX, 10_000)
	userY := env.fund(t, env.user.Address, env.mintY, 10_000)
	env.fund(t, env.user.Address, lpAddress, 0)

	accounts := env.poolAccounts(t, config, lpAddress)
	require.NoError(t, env.processor.Process(accounts, depositData(100, 2000, 3000)))

	swapAccounts := []*ledger.Account{
		accounts[0], // user
		accounts[1], // config
		accounts[3], // vault_x
		accounts[4], // vault_y
		accounts[5], // user_x
		accounts[6], // user_y
		accounts[8], // token program
	}

	// X in, Y out
	require.NoError(t, env.processor.Process(swapAccounts, swapData(true, 500, 400)))
	assert.EqualValues(t, 7500, env.balance(t, userX))
	assert.EqualValues(t, 7400, env.balance(t, userY))

	// Y in, X out
	require.NoError(t, env.processor.Process(swapAccounts, swapData(false, 400, 500)))
	assert.EqualValues(t, 8000, env.balance(t, userX))
	assert.EqualValues(t, 7000, env.balance(t, userY))
}

func TestProcessor_PoolStateGates(t *testing.T) {
	env := setup(t)

	config, lpAddress := env.initializePool(t, 1, 30)

	env.fund(t, env.user.Address, env.mintX, 10_000)
	env.fund(t, env.user.Address, env.mintY, 10_000)
	env.fund(t, env.user.Address, lpAddress, 0)

	accounts := env.poolAccounts(t, config, lpAddress)
	require.NoError(t, env.processor.Process(accounts, depositData(100, 2000, 3000)))

	var state ConfigAccount
	require.NoError(t, state.Unmarshal(config.Data))

	// A withdraw-only pool rejects deposits and swaps but honors withdrawals.
	state.State = PoolStateWithdrawOnly
	copy(config.Data, state.Marshal())

	assert.Equal(t, program.ErrUninitializedAccount, env.processor.Process(accounts, depositData(100, 2000, 3000)))
	require.NoError(t, env.processor.Process(accounts, withdrawData(100, 2000, 3000)))

	// A disabled pool rejects everything.
	state.State = PoolStateDisabled
	copy(config.Data, state.Marshal())

	assert.Equal(t, program.ErrUninitializedAccount, env.processor.Process(accounts, depositData(100, 2000, 3000)))
	assert.Equal(t, program.ErrInvalidAccountData, env.processor.Process(accounts, withdrawData(1, 1, 1)))
}

func TestProcessor_UnknownPool(t *testing.T) {
	env := setup(t)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	accounts := []*ledger.Account{
		env.user,
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(pub),
		env.ledger.Account(token.ProgramKey),
	}
	assert.Equal(t, program.ErrInvalidAccountOwner, env.processor.Process(accounts, depositData(100, 2000, 3000)))
}

func TestProcessor_InvalidInstructionData(t *testing.T) {
	env := setup(t)

	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, nil))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, []byte{0xff}))

	// zero amounts
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, depositData(0, 1, 1)))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, depositData(1, 0, 1)))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, withdrawData(0, 1, 1)))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, swapData(true, 0, 1)))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, swapData(true, 1, 0)))

	// truncated payloads
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, []byte{byte(CommandSwap), 1}))
	assert.Equal(t, program.ErrInvalidInstructionData, env.processor.Process(nil, []byte{byte(CommandInitialize), 1, 2, 3}))
}

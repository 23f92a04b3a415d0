package program

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowhq/escrow-server/pkg/ledger"
	"github.com/escrowhq/escrow-server/pkg/solana/token"
)

func generateKeys(t *testing.T, count int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, count)
	for i := 0; i < count; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}

func TestCheckSigner(t *testing.T) {
	keys := generateKeys(t, 1)
	account := &ledger.Account{Address: keys[0]}

	assert.Equal(t, ErrMissingSignature, CheckSigner(account))

	account.Signer = true
	assert.NoError(t, CheckSigner(account))
}

func TestCheckOwnedBy(t *testing.T) {
	keys := generateKeys(t, 2)
	account := &ledger.Account{
		Address: keys[0],
		Owner:   keys[1],
		Data:    make([]byte, 113),
	}

	assert.NoError(t, CheckOwnedBy(account, keys[1], 113))
	assert.Equal(t, ErrInvalidAccountOwner, CheckOwnedBy(account, keys[0], 113))
	assert.Equal(t, ErrInvalidAccountData, CheckOwnedBy(account, keys[1], 112))
}

func TestCheckMint(t *testing.T) {
	keys := generateKeys(t, 1)

	account := &ledger.Account{
		Address: keys[0],
		Owner:   token.ProgramKey,
		Data:    make([]byte, token.MintSize),
	}
	assert.NoError(t, CheckMint(account))

	account.Data = make([]byte, token.AccountSize)
	assert.Equal(t, ErrInvalidAccountData, CheckMint(account))

	account.Owner = keys[0]
	assert.Equal(t, ErrInvalidAccountOwner, CheckMint(account))
}

func TestCheckAssociatedTokenAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	expected, err := token.GetAssociatedAccount(keys[0], keys[1])
	require.NoError(t, err)

	account := &ledger.Account{Address: expected}
	assert.NoError(t, CheckAssociatedTokenAccount(account, keys[0], keys[1]))

	// any other address fails the re-derivation
	account = &ledger.Account{Address: keys[2]}
	assert.Equal(t, ErrInvalidAccountData, CheckAssociatedTokenAccount(account, keys[0], keys[1]))
}

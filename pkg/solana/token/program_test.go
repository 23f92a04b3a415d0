package token

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := Transfer(keys[0], keys[1], keys[2], 123456789)

	assert.EqualValues(t, ProgramKey, instruction.Program)
	assert.EqualValues(t, CommandTransfer, instruction.Data[0])
	assert.EqualValues(t, 123456789, binary.LittleEndian.Uint64(instruction.Data[1:]))

	assert.EqualValues(t, keys[0], instruction.Accounts[0].PublicKey)
	assert.EqualValues(t, keys[1], instruction.Accounts[1].PublicKey)
	assert.EqualValues(t, keys[2], instruction.Accounts[2].PublicKey)
	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[2].IsSigner)
}

func TestInitializeAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := InitializeAccount(keys[0], keys[1], keys[2])

	assert.Equal(t, []byte{byte(CommandInitializeAccount)}, instruction.Data)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	for i := 1; i < 3; i++ {
		assert.False(t, instruction.Accounts[i].IsSigner)
		assert.False(t, instruction.Accounts[i].IsWritable)
	}
}

func TestCloseAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := CloseAccount(keys[0], keys[1], keys[2])

	assert.Equal(t, []byte{byte(CommandCloseAccount)}, instruction.Data)
	assert.True(t, instruction.Accounts[2].IsSigner)
}

func TestMintToAndBurn(t *testing.T) {
	keys := generateKeys(t, 3)

	mintTo := MintTo(keys[0], keys[1], keys[2], 77)
	assert.EqualValues(t, CommandMintTo, mintTo.Data[0])
	assert.EqualValues(t, 77, binary.LittleEndian.Uint64(mintTo.Data[1:]))

	burn := Burn(keys[0], keys[1], keys[2], 78)
	assert.EqualValues(t, CommandBurn, burn.Data[0])
	assert.EqualValues(t, 78, binary.LittleEndian.Uint64(burn.Data[1:]))
}

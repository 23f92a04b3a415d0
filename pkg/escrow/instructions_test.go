package escrow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowhq/escrow-server/pkg/program"
)

func TestMakeInstructionArgs_Unmarshal(t *testing.T) {
	data := make([]byte, MakeInstructionArgsSize)
	binary.LittleEndian.PutUint64(data[0:], 42)
	binary.LittleEndian.PutUint64(data[8:], 1000)
	binary.LittleEndian.PutUint64(data[16:], 500)

	var args MakeInstructionArgs
	require.NoError(t, args.Unmarshal(data))
	assert.EqualValues(t, 42, args.Seed)
	assert.EqualValues(t, 1000, args.Receive)
	assert.EqualValues(t, 500, args.Amount)
}

func TestMakeInstructionArgs_Invalid(t *testing.T) {
	var args MakeInstructionArgs

	assert.Equal(t, program.ErrInvalidInstructionData, args.Unmarshal(nil))
	assert.Equal(t, program.ErrInvalidInstructionData, args.Unmarshal(make([]byte, MakeInstructionArgsSize-1)))
	assert.Equal(t, program.ErrInvalidInstructionData, args.Unmarshal(make([]byte, MakeInstructionArgsSize+1)))

	// zero amount
	data := make([]byte, MakeInstructionArgsSize)
	binary.LittleEndian.PutUint64(data[8:], 1000)
	assert.Equal(t, program.ErrInvalidInstructionData, args.Unmarshal(data))

	// zero receive
	data = make([]byte, MakeInstructionArgsSize)
	binary.LittleEndian.PutUint64(data[16:], 500)
	assert.Equal(t, program.ErrInvalidInstructionData, args.Unmarshal(data))
}

func TestNewMakeInstruction(t *testing.T) {
	keys := generateKeys(t, 6)

	instruction := NewMakeInstruction(
		&MakeInstructionAccounts{
			Maker:       keys[0],
			Escrow:      keys[1],
			MintA:       keys[2],
			MintB:       keys[3],
			MakerTokenA: keys[4],
			Vault:       keys[5],
		},
		&MakeInstructionArgs{
			Seed:    42,
			Receive: 1000,
			Amount:  500,
		},
	)

	assert.EqualValues(t, ProgramKey, instruction.Program)

	require.Len(t, instruction.Data, 1+MakeInstructionArgsSize)
	assert.EqualValues(t, CommandMake, instruction.Data[0])
	assert.EqualValues(t, 42, binary.LittleEndian.Uint64(instruction.Data[1:]))
	assert.EqualValues(t, 1000, binary.LittleEndian.Uint64(instruction.Data[9:]))
	assert.EqualValues(t, 500, binary.LittleEndian.Uint64(instruction.Data[17:]))

	require.Len(t, instruction.Accounts, 8)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	for i, key := range keys {
		assert.EqualValues(t, key, instruction.Accounts[i].PublicKey)
	}
	assert.False(t, instruction.Accounts[2].IsWritable)
	assert.False(t, instruction.Accounts[3].IsWritable)
}

func TestNewTakeInstruction(t *testing.T) {
	keys := generateKeys(t, 9)

	instruction := NewTakeInstruction(&TakeInstructionAccounts{
		Taker:       keys[0],
		Maker:       keys[1],
		Escrow:      keys[2],
		MintA:       keys[3],
		MintB:       keys[4],
		Vault:       keys[5],
		TakerTokenA: keys[6],
		TakerTokenB: keys[7],
		MakerTokenB: keys[8],
	})

	assert.Equal(t, []byte{byte(CommandTake)}, instruction.Data)
	require.Len(t, instruction.Accounts, 11)
	assert.True(t, instruction.Accounts[0].IsSigner)
	for i, key := range keys {
		assert.EqualValues(t, key, instruction.Accounts[i].PublicKey)
	}
}

func TestNewRefundInstruction(t *testing.T) {
	keys := generateKeys(t, 5)

	instruction := NewRefundInstruction(&RefundInstructionAccounts{
		Maker:       keys[0],
		Escrow:      keys[1],
		MintA:       keys[2],
		Vault:       keys[3],
		MakerTokenA: keys[4],
	})

	assert.Equal(t, []byte{byte(CommandRefund)}, instruction.Data)
	require.Len(t, instruction.Accounts, 7)
	assert.True(t, instruction.Accounts[0].IsSigner)
	for i, key := range keys {
		assert.EqualValues(t, key, instruction.Accounts[i].PublicKey)
	}
}

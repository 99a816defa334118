package asm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func TestReadExtraConstantInt(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x2A} // 42, big-endian
	ops, n, err := ReadExtra(bytes.NewReader(buf), OpConstant, AuxTypeInt, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(42), ops.Int32)
}

func TestReadExtraConstantFloat(t *testing.T) {
	// 1.5f as IEEE-754 big-endian bytes.
	buf := []byte{0x3F, 0xC0, 0x00, 0x00}
	ops, _, err := ReadExtra(bytes.NewReader(buf), OpConstant, AuxTypeFloat, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), ops.Float32)
}

func TestReadExtraConstantString(t *testing.T) {
	buf := []byte{0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}
	ops, n, err := ReadExtra(bytes.NewReader(buf), OpConstant, AuxTypeString, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "hello", ops.Str)
}

func TestReadExtraJumpIsSignedInt32(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xF6} // -10
	ops, _, err := ReadExtra(bytes.NewReader(buf), OpJump, AuxNone, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, int32(-10), ops.Int32)
}

func TestReadExtraStoreStateTwoInts(t *testing.T) {
	buf := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	ops, n, err := ReadExtra(bytes.NewReader(buf), OpStoreState, AuxNone, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, int32(1), ops.Int32)
	assert.Equal(t, int32(2), ops.Int32b)
}

func TestReadExtraExecuteCommandCmdIDAndArgc(t *testing.T) {
	buf := []byte{0x00, 0x07, 0x02}
	ops, n, err := ReadExtra(bytes.NewReader(buf), OpExecuteCommand, AuxNone, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, uint16(7), ops.CmdID)
	assert.Equal(t, uint8(2), ops.Argc)
}

func TestReadExtraRunstackCopyOffsetAndSize(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFC, 0x00, 0x04} // offset -4, size 4
	ops, n, err := ReadExtra(bytes.NewReader(buf), OpCopyTopSP, AuxNone, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int32(-4), ops.Offset)
	assert.Equal(t, uint16(4), ops.Size)
}

func TestReadExtraDestructThreeUint16(t *testing.T) {
	buf := []byte{0x00, 0x08, 0x00, 0x04, 0x00, 0x04}
	ops, _, err := ReadExtra(bytes.NewReader(buf), OpDestruct, AuxNone, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, [3]uint16{8, 4, 4}, ops.Three)
}

func TestReadExtraNoneShapeConsumesNothing(t *testing.T) {
	ops, n, err := ReadExtra(bytes.NewReader(nil), OpAdd, AuxIntInt, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, Operands{}, ops)
}

func TestDecodeProgramIndexesInstructionsByOffset(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NCS ")
	buf.WriteString("V1.0")
	buf.WriteByte(0x42)
	buf.Write([]byte{0, 0, 0, 0}) // size field, unused by Decode's own bookkeeping
	buf.Write([]byte{byte(OpConstant), byte(AuxTypeInt), 0, 0, 0, 5})
	buf.Write([]byte{byte(OpReturn), byte(AuxNone)})

	prog, err := Decode(&buf, nwtypes.CP1252)
	require.NoError(t, err)
	require.Len(t, prog.Order, 2)

	first, ok := prog.At(13)
	require.True(t, ok)
	assert.Equal(t, OpConstant, first.Opcode)
	assert.Equal(t, int32(5), first.Operands.Int32)
	assert.Equal(t, int32(6), first.Len)

	second, ok := prog.At(19)
	require.True(t, ok)
	assert.Equal(t, OpReturn, second.Opcode)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXXV1.0")
	_, err := Decode(buf, nwtypes.CP1252)
	assert.Error(t, err)
}

func TestDisassembleOneLinePerInstructionInOrder(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NCS ")
	buf.WriteString("V1.0")
	buf.WriteByte(0x42)
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write([]byte{byte(OpConstant), byte(AuxTypeInt), 0, 0, 0, 5})
	buf.Write([]byte{byte(OpReturn), byte(AuxNone)})

	prog, err := Decode(&buf, nwtypes.CP1252)
	require.NoError(t, err)

	lines := prog.Disassemble()
	require.Len(t, lines, len(prog.Order))
	assert.Contains(t, lines[0], "CONST")
	assert.Contains(t, lines[0], "5")
	assert.Contains(t, lines[1], "RETN")
}

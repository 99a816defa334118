package vm

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwscript/asm"
	"github.com/nwnkit/nwngo/pkg/nwscript/langspec"
	"github.com/nwnkit/nwngo/pkg/nwscript/ndb"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// asmBuilder hand-assembles an NCS byte stream the way a compiler's code
// generator would, instruction by instruction. There is no compiler in
// this package (that collaborator is external), so tests that need a
// compiled body build it directly.
type asmBuilder struct {
	buf bytes.Buffer
}

func newProgram() *asmBuilder {
	b := &asmBuilder{}
	b.buf.WriteString("NCS ")
	b.buf.WriteString("V1.0")
	b.buf.WriteByte(0x42)
	b.buf.Write([]byte{0, 0, 0, 0})
	return b
}

func (b *asmBuilder) op(op asm.Opcode, aux asm.Auxcode) *asmBuilder {
	b.buf.WriteByte(byte(op))
	b.buf.WriteByte(byte(aux))
	return b
}

func (b *asmBuilder) i32(v int32) *asmBuilder {
	var be [4]byte
	binary.BigEndian.PutUint32(be[:], uint32(v))
	b.buf.Write(be[:])
	return b
}

func (b *asmBuilder) u16(v uint16) *asmBuilder {
	var be [2]byte
	binary.BigEndian.PutUint16(be[:], v)
	b.buf.Write(be[:])
	return b
}

func (b *asmBuilder) u8(v uint8) *asmBuilder {
	b.buf.WriteByte(v)
	return b
}

// copyTopBP emits a CPTOPBP: fetch size bytes from offset (BP-relative)
// onto the top of the stack.
func (b *asmBuilder) copyTopBP(offset int32, size uint16) *asmBuilder {
	return b.op(asm.OpCopyTopBP, asm.AuxNone).i32(offset).u16(size)
}

func (b *asmBuilder) copyDownBP(offset int32, size uint16) *asmBuilder {
	return b.op(asm.OpCopyDownBP, asm.AuxNone).i32(offset).u16(size)
}

func (b *asmBuilder) action(cmdID uint16, argc uint8) *asmBuilder {
	return b.op(asm.OpExecuteCommand, asm.AuxNone).u16(cmdID).u8(argc)
}

func (b *asmBuilder) addIntInt() *asmBuilder {
	return b.op(asm.OpAdd, asm.AuxIntInt)
}

func (b *asmBuilder) moveSP(delta int32) *asmBuilder {
	return b.op(asm.OpMoveSP, asm.AuxNone).i32(delta)
}

func (b *asmBuilder) retn() *asmBuilder {
	return b.op(asm.OpReturn, asm.AuxNone)
}

func (b *asmBuilder) bytes() []byte { return b.buf.Bytes() }

// buildAddFunction assembles: int add(int a, int b) { return TestCall(a) +
// TestCall(b); } as it would be called via VM.Call, where the caller has
// already pushed [retSlot, a, b] and set BP past b.
func buildAddFunction() []byte {
	b := newProgram()
	b.copyTopBP(-8, 4)  // push copy of a
	b.action(0, 1)      // a = TestCall(a)
	b.copyTopBP(-4, 4)  // push copy of b
	b.action(0, 1)      // b = TestCall(b)
	b.addIntInt()        // sum = a' + b'
	b.copyDownBP(-12, 4) // retSlot = sum
	b.moveSP(-12)         // drop a, b, and the duplicate sum
	b.retn()
	return b.bytes()
}

type testHost struct {
	calls []int32
}

func (h *testHost) TestCall(v int32) int32 {
	h.calls = append(h.calls, v)
	return v
}

func mustLangspec(t *testing.T, src string) *langspec.Spec {
	t.Helper()
	spec, err := langspec.Read(strings.NewReader(src))
	require.NoError(t, err)
	return spec
}

func mustNdb(t *testing.T, src string) *ndb.Ndb {
	t.Helper()
	n, err := ndb.Read(strings.NewReader(src))
	require.NoError(t, err)
	return n
}

func TestVMCallExecutesCompiledFunction(t *testing.T) {
	prog, err := asm.Decode(bytes.NewReader(buildAddFunction()), nwtypes.CP1252)
	require.NoError(t, err)

	spec := mustLangspec(t, "int TestCall(int v);\n")
	dbg := mustNdb(t, "FUNCTION add 13 57 int\nARG int\nARG int\n")

	host := &testHost{}
	machine := New(prog, spec, dbg, host)

	result, err := machine.Call("add", int32(20), int32(30))
	require.NoError(t, err)
	assert.Equal(t, int32(50), result)
	assert.Equal(t, []int32{20, 30}, host.calls)
}

func TestVMCallRejectsUnknownFunction(t *testing.T) {
	prog, err := asm.Decode(bytes.NewReader(buildAddFunction()), nwtypes.CP1252)
	require.NoError(t, err)
	spec := mustLangspec(t, "int TestCall(int v);\n")
	dbg := mustNdb(t, "FUNCTION add 13 57 int\nARG int\nARG int\n")
	machine := New(prog, spec, dbg, &testHost{})

	_, err = machine.Call("nope")
	assert.Error(t, err)
}

func TestVMCallRejectsArgCountMismatch(t *testing.T) {
	prog, err := asm.Decode(bytes.NewReader(buildAddFunction()), nwtypes.CP1252)
	require.NoError(t, err)
	spec := mustLangspec(t, "int TestCall(int v);\n")
	dbg := mustNdb(t, "FUNCTION add 13 57 int\nARG int\nARG int\n")
	machine := New(prog, spec, dbg, &testHost{})

	_, err = machine.Call("add", int32(1))
	assert.Error(t, err)
}

func TestObjectSentinels(t *testing.T) {
	assert.True(t, Invalid.IsInvalid())
	assert.False(t, Self.IsInvalid())
	assert.Equal(t, "Object.INVALID", Invalid.String())
	assert.Equal(t, "Object.SELF", Self.String())

	obj, err := NewObject(1234)
	require.NoError(t, err)
	assert.Equal(t, "Object(0x4D2)", obj.String())

	_, err = NewObject(-1)
	assert.Error(t, err)
}

func TestStackArithmeticRoundTrip(t *testing.T) {
	s := NewStack()
	s.PushInt(2)
	s.PushInt(3)
	b, a := s.PopInt(), s.PopInt()
	assert.Equal(t, int32(3), b)
	assert.Equal(t, int32(2), a)
	assert.Equal(t, int32(0), s.SP())
}

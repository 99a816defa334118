// Package asm decodes the NCS bytecode instruction stream: opcode/auxcode
// pairs plus their big-endian operands. The decoder and the disassembler
// (Disassemble) share a single operand-shape table rather than a switch, so
// adding an instruction only means adding a table row.
package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Opcode is the instruction's primary byte.
type Opcode uint8

// Auxcode is the instruction's secondary byte: for CONSTANT it selects the
// pushed value's type; for most other opcodes it is unused (None).
type Auxcode uint8

const (
	AuxNone Auxcode = 0x00

	AuxTypeInt    Auxcode = 0x03
	AuxTypeFloat  Auxcode = 0x04
	AuxTypeString Auxcode = 0x05
	AuxTypeObject Auxcode = 0x06

	// Binary-op auxcodes, appended to arithmetic/comparison/logical
	// opcodes to select the operand types they act on.
	AuxIntInt       Auxcode = 0x20
	AuxFloatFloat   Auxcode = 0x21
	AuxObjectObject Auxcode = 0x22
	AuxStringString Auxcode = 0x23
	AuxStructStruct Auxcode = 0x24
	AuxIntFloat     Auxcode = 0x25
	AuxFloatInt     Auxcode = 0x26
	AuxEffectEffect Auxcode = 0x30
	AuxEventEvent   Auxcode = 0x31
	AuxLocationLocation Auxcode = 0x32
	AuxTalentTalent Auxcode = 0x33
	AuxVectorVector Auxcode = 0x3A
	AuxVectorFloat  Auxcode = 0x3B
	AuxFloatVector  Auxcode = 0x3C
)

const (
	OpCopyDownSP    Opcode = 0x01 // RUNSTACK_COPY (assignment target)
	OpReserve       Opcode = 0x02 // RSADD: reserve a stack slot of a given type
	OpCopyTopSP     Opcode = 0x03 // RUNSTACK_COPY (value fetch)
	OpConstant      Opcode = 0x04
	OpExecuteCommand Opcode = 0x05
	OpLogicalAnd    Opcode = 0x06
	OpLogicalOr     Opcode = 0x07
	OpBitwiseOr     Opcode = 0x08
	OpBitwiseXor    Opcode = 0x09
	OpBitwiseAnd    Opcode = 0x0A
	OpEqual         Opcode = 0x0B
	OpNotEqual      Opcode = 0x0C
	OpGreaterEqual  Opcode = 0x0D
	OpGreater       Opcode = 0x0E
	OpLess          Opcode = 0x0F
	OpLessEqual     Opcode = 0x10
	OpShiftLeft     Opcode = 0x11
	OpShiftRight    Opcode = 0x12
	OpUShiftRight   Opcode = 0x13
	OpAdd           Opcode = 0x14
	OpSubtract      Opcode = 0x15
	OpMultiply      Opcode = 0x16
	OpDivide        Opcode = 0x17
	OpModulo        Opcode = 0x18
	OpNegate        Opcode = 0x19
	OpBitwiseNot    Opcode = 0x1A
	OpMoveSP        Opcode = 0x1B // truncate the stack pointer
	OpStoreStateAll Opcode = 0x1C // deprecated closure-capture form
	OpJump          Opcode = 0x1D
	OpJumpSubroutine Opcode = 0x1E
	OpJumpZero      Opcode = 0x1F
	OpReturn        Opcode = 0x20
	OpDestruct      Opcode = 0x21 // DE_STRUCT
	OpNot           Opcode = 0x22
	OpDecrementSP   Opcode = 0x23
	OpIncrementSP   Opcode = 0x24
	OpJumpNotZero   Opcode = 0x25
	OpCopyDownBP    Opcode = 0x26 // ASSIGNMENT target
	OpCopyTopBP     Opcode = 0x27 // ASSIGNMENT fetch
	OpDecrementBP   Opcode = 0x28
	OpIncrementBP   Opcode = 0x29
	OpSaveBP        Opcode = 0x2A
	OpRestoreBP     Opcode = 0x2B
	OpStoreState    Opcode = 0x2C
	OpNop           Opcode = 0x2D
)

// OperandShape names the fixed sequence of operand fields an instruction
// carries, independent of their runtime values.
type OperandShape int

const (
	ShapeNone OperandShape = iota
	ShapeInt32
	ShapeFloat32
	ShapeStringU16Prefixed
	ShapeUint32
	ShapeTwoInt32
	ShapeCmdIDArgc
	ShapeOffsetSize
	ShapeThreeUint16
)

// key identifies a row in the operand-shape table: an opcode, optionally
// qualified by its auxcode (CONSTANT is the only opcode whose operand shape
// depends on the auxcode).
type key struct {
	op  Opcode
	aux Auxcode
}

// shapeTable is the single source of truth for operand layout, shared by
// the decoder and any disassembler: a REDESIGN note warns against
// hardcoding this as a switch.
var shapeTable = map[key]OperandShape{
	{OpConstant, AuxTypeInt}:    ShapeInt32,
	{OpConstant, AuxTypeFloat}:  ShapeFloat32,
	{OpConstant, AuxTypeString}: ShapeStringU16Prefixed,
	{OpConstant, AuxTypeObject}: ShapeUint32,
	{OpJump, AuxNone}:           ShapeInt32,
	{OpJumpZero, AuxNone}:       ShapeInt32,
	{OpJumpNotZero, AuxNone}:    ShapeInt32,
	{OpJumpSubroutine, AuxNone}: ShapeInt32,
	{OpStoreState, AuxNone}:     ShapeTwoInt32,
	{OpExecuteCommand, AuxNone}: ShapeCmdIDArgc,
	{OpCopyDownSP, AuxNone}:     ShapeOffsetSize,
	{OpCopyTopSP, AuxNone}:      ShapeOffsetSize,
	{OpCopyDownBP, AuxNone}:     ShapeOffsetSize,
	{OpCopyTopBP, AuxNone}:      ShapeOffsetSize,
	{OpDecrementSP, AuxNone}:    ShapeInt32,
	{OpIncrementSP, AuxNone}:    ShapeInt32,
	{OpDecrementBP, AuxNone}:    ShapeInt32,
	{OpIncrementBP, AuxNone}:    ShapeInt32,
	{OpDestruct, AuxNone}:       ShapeThreeUint16,
	{OpMoveSP, AuxNone}:         ShapeInt32,
	{OpReserve, AuxTypeInt}:     ShapeNone,
	{OpReserve, AuxTypeFloat}:   ShapeNone,
	{OpReserve, AuxTypeString}:  ShapeNone,
	{OpReserve, AuxTypeObject}:  ShapeNone,
}

func shapeFor(op Opcode, aux Auxcode) OperandShape {
	if s, ok := shapeTable[key{op, aux}]; ok {
		return s
	}
	return ShapeNone
}

// Operands holds a decoded instruction's operand values in declared order;
// the concrete fields populated depend on its Shape.
type Operands struct {
	Int32  int32
	Int32b int32
	Float32 float32
	Str    string
	Uint32 uint32
	CmdID  uint16
	Argc   uint8
	Offset int32
	Size   uint16
	Three  [3]uint16
}

// Instruction is one decoded (opcode, auxcode, operands) triple plus the
// byte offset it was read from, used by JMP-family relative targets.
type Instruction struct {
	Offset  int32
	Opcode  Opcode
	Auxcode Auxcode
	Operands Operands
	Len     int32 // total encoded length including the 2-byte opcode/auxcode header
}

// ReadExtra decodes the operand fields for (op, aux) from r, which must be
// positioned immediately after the opcode/auxcode header. All multi-byte
// fields are big-endian, the one exception to every other format in this
// module.
func ReadExtra(r io.Reader, op Opcode, aux Auxcode, cp nwtypes.CodePage) (Operands, int, error) {
	shape := shapeFor(op, aux)
	var out Operands
	switch shape {
	case ShapeNone:
		return out, 0, nil
	case ShapeInt32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.Int32 = int32(binary.BigEndian.Uint32(b[:]))
		return out, 4, nil
	case ShapeFloat32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		bits := binary.BigEndian.Uint32(b[:])
		out.Float32 = math.Float32frombits(bits)
		return out, 4, nil
	case ShapeStringU16Prefixed:
		var lb [2]byte
		if _, err := io.ReadFull(r, lb[:]); err != nil {
			return out, 0, err
		}
		n := binary.BigEndian.Uint16(lb[:])
		raw := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, raw); err != nil {
				return out, 0, err
			}
		}
		s, err := codepage.Decode(raw, cp)
		if err != nil {
			return out, 0, fmt.Errorf("asm: %w", err)
		}
		out.Str = s
		return out, 2 + int(n), nil
	case ShapeUint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.Uint32 = binary.BigEndian.Uint32(b[:])
		return out, 4, nil
	case ShapeTwoInt32:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.Int32 = int32(binary.BigEndian.Uint32(b[0:4]))
		out.Int32b = int32(binary.BigEndian.Uint32(b[4:8]))
		return out, 8, nil
	case ShapeCmdIDArgc:
		var b [3]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.CmdID = binary.BigEndian.Uint16(b[0:2])
		out.Argc = b[2]
		return out, 3, nil
	case ShapeOffsetSize:
		var b [6]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.Offset = int32(binary.BigEndian.Uint32(b[0:4]))
		out.Size = binary.BigEndian.Uint16(b[4:6])
		return out, 6, nil
	case ShapeThreeUint16:
		var b [6]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return out, 0, err
		}
		out.Three[0] = binary.BigEndian.Uint16(b[0:2])
		out.Three[1] = binary.BigEndian.Uint16(b[2:4])
		out.Three[2] = binary.BigEndian.Uint16(b[4:6])
		return out, 6, nil
	default:
		return out, 0, fmt.Errorf("asm: %w: unhandled operand shape for opcode 0x%02x", nwerr.ErrFormat, op)
	}
}

// headerSize is the NCS program header: "NCS "/"V1.0" (8 bytes) followed by
// a 0x42 marker byte and a big-endian u32 program size covering the header
// itself.
const headerSize = 13

const sizeMarker = 0x42

// Program is a fully decoded NCS instruction stream, indexed by byte offset
// so jump targets (themselves byte offsets from the start of the file) can
// be resolved directly.
type Program struct {
	ByOffset map[int32]Instruction
	Order    []int32
	Size     int32
}

// Decode parses an entire compiled script: the fixed header plus every
// instruction in the code section.
func Decode(r io.Reader, cp nwtypes.CodePage) (*Program, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	if string(hdr[0:4]) != "NCS " {
		return nil, fmt.Errorf("asm: %w: %q", nwerr.ErrInvalidMagic, hdr[0:4])
	}
	if string(hdr[4:8]) != "V1.0" {
		return nil, fmt.Errorf("asm: %w: %q", nwerr.ErrUnsupportedVersion, hdr[4:8])
	}
	var marker [1]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	if marker[0] != sizeMarker {
		return nil, fmt.Errorf("asm: %w: expected program size marker", nwerr.ErrFormat)
	}
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf[:]))

	prog := &Program{ByOffset: map[int32]Instruction{}, Size: size}
	offset := int32(headerSize)
	for {
		var opAux [2]byte
		_, err := io.ReadFull(r, opAux[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("asm: %w", err)
		}
		op := Opcode(opAux[0])
		aux := Auxcode(opAux[1])
		operands, n, err := ReadExtra(r, op, aux, cp)
		if err != nil {
			return nil, fmt.Errorf("asm: at offset %d: %w", offset, err)
		}
		inst := Instruction{
			Offset:   offset,
			Opcode:   op,
			Auxcode:  aux,
			Operands: operands,
			Len:      int32(2 + n),
		}
		prog.ByOffset[offset] = inst
		prog.Order = append(prog.Order, offset)
		offset += inst.Len
	}
	return prog, nil
}

// At returns the instruction starting at byte offset off.
func (p *Program) At(off int32) (Instruction, bool) {
	inst, ok := p.ByOffset[off]
	return inst, ok
}

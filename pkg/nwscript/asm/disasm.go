package asm

import "fmt"

var mnemonics = map[Opcode]string{
	OpCopyDownSP:     "CPDOWNSP",
	OpReserve:        "RSADD",
	OpCopyTopSP:      "CPTOPSP",
	OpConstant:       "CONST",
	OpExecuteCommand: "ACTION",
	OpLogicalAnd:     "LOGANDII",
	OpLogicalOr:      "LOGORII",
	OpBitwiseOr:      "INCORII",
	OpBitwiseXor:     "EXCORII",
	OpBitwiseAnd:     "BOOLANDII",
	OpEqual:          "EQUAL",
	OpNotEqual:       "NEQUAL",
	OpGreaterEqual:   "GEQ",
	OpGreater:        "GT",
	OpLess:           "LT",
	OpLessEqual:      "LEQ",
	OpShiftLeft:      "SHLEFTII",
	OpShiftRight:     "SHRIGHTII",
	OpUShiftRight:    "USHRIGHTII",
	OpAdd:            "ADD",
	OpSubtract:       "SUB",
	OpMultiply:       "MUL",
	OpDivide:         "DIV",
	OpModulo:         "MOD",
	OpNegate:         "NEG",
	OpBitwiseNot:     "COMPI",
	OpMoveSP:         "MOVSP",
	OpStoreStateAll:  "STORE_STATEALL",
	OpJump:           "JMP",
	OpJumpSubroutine: "JSR",
	OpJumpZero:       "JZ",
	OpReturn:         "RETN",
	OpDestruct:       "DESTRUCT",
	OpNot:            "NOTI",
	OpDecrementSP:    "DECISP",
	OpIncrementSP:    "INCISP",
	OpJumpNotZero:    "JNZ",
	OpCopyDownBP:     "CPDOWNBP",
	OpCopyTopBP:      "CPTOPBP",
	OpDecrementBP:    "DECIBP",
	OpIncrementBP:    "INCIBP",
	OpSaveBP:         "SAVEBP",
	OpRestoreBP:      "RESTOREBP",
	OpStoreState:     "STORE_STATE",
	OpNop:            "NOP",
}

func mnemonic(op Opcode) string {
	if m, ok := mnemonics[op]; ok {
		return m
	}
	return fmt.Sprintf("OP_%02X", uint8(op))
}

func operandString(inst Instruction) string {
	switch shapeFor(inst.Opcode, inst.Auxcode) {
	case ShapeInt32:
		return fmt.Sprintf("%d", inst.Operands.Int32)
	case ShapeFloat32:
		return fmt.Sprintf("%g", inst.Operands.Float32)
	case ShapeStringU16Prefixed:
		return fmt.Sprintf("%q", inst.Operands.Str)
	case ShapeUint32:
		return fmt.Sprintf("0x%08X", inst.Operands.Uint32)
	case ShapeTwoInt32:
		return fmt.Sprintf("%d, %d", inst.Operands.Int32, inst.Operands.Int32b)
	case ShapeCmdIDArgc:
		return fmt.Sprintf("cmd=%d, argc=%d", inst.Operands.CmdID, inst.Operands.Argc)
	case ShapeOffsetSize:
		return fmt.Sprintf("offset=%d, size=%d", inst.Operands.Offset, inst.Operands.Size)
	case ShapeThreeUint16:
		return fmt.Sprintf("%d, %d, %d", inst.Operands.Three[0], inst.Operands.Three[1], inst.Operands.Three[2])
	default:
		return ""
	}
}

// Disassemble renders one line per instruction, in program order, reusing
// the same operand-shape table the decoder consults so the two can never
// disagree about an instruction's layout.
func (p *Program) Disassemble() []string {
	lines := make([]string, 0, len(p.Order))
	for _, off := range p.Order {
		inst := p.ByOffset[off]
		operands := operandString(inst)
		if operands == "" {
			lines = append(lines, fmt.Sprintf("%06d: %s", inst.Offset, mnemonic(inst.Opcode)))
		} else {
			lines = append(lines, fmt.Sprintf("%06d: %-10s %s", inst.Offset, mnemonic(inst.Opcode), operands))
		}
	}
	return lines
}

// Package vm executes a decoded NCS instruction stream against a caller
// supplied host implementation of the engine's command functions. It
// covers the scalar ISA (arithmetic, comparisons, control flow, calls,
// struct copies) but not action-queue suspension: STORE_STATE/
// STORE_STATEALL, the opcodes behind AssignCommand/DelayCommand-style
// closures, are rejected rather than faked, since there is no actual
// engine action queue to resume them against.
package vm

import (
	"fmt"
	"reflect"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwlog"
	"github.com/nwnkit/nwngo/pkg/nwscript/asm"
	"github.com/nwnkit/nwngo/pkg/nwscript/langspec"
	"github.com/nwnkit/nwngo/pkg/nwscript/ndb"
)

var log = nwlog.New("vm")

// haltIP is the synthetic return address for the outermost call frame: a
// RETURN that pops it stops the run loop instead of jumping anywhere.
const haltIP = -1

type frame struct {
	returnIP int32
	savedBP  int32
}

// VM holds one script's execution state: its decoded program, its command
// table, and the mutable stack/registers a run advances.
type VM struct {
	prog *asm.Program
	spec *langspec.Spec
	ndb  *ndb.Ndb
	host interface{}

	stack     *Stack
	ip        int32
	bp        int32
	objSelf   Object
	callStack []frame
}

// New builds a VM ready to execute prog, dispatching EXECUTE_COMMAND
// instructions to host's exported methods by name per spec's function
// table. ndbInfo may be nil if name-based Call is not needed.
func New(prog *asm.Program, spec *langspec.Spec, ndbInfo *ndb.Ndb, host interface{}) *VM {
	return &VM{
		prog:    prog,
		spec:    spec,
		ndb:     ndbInfo,
		host:    host,
		stack:   NewStack(),
		objSelf: Self,
	}
}

// NewFromScript is a convenience constructor building a VM directly from a
// loaded Script.
func NewFromScript(script *Script, spec *langspec.Spec, host interface{}) *VM {
	var dbg *ndb.Ndb
	if script != nil {
		dbg = script.Debug
	}
	var prog *asm.Program
	if script != nil {
		prog = script.Program
	}
	return New(prog, spec, dbg, host)
}

// IP and SP stay valid even after Run/Call returns an error, so a caller
// can report where execution stopped.
func (vm *VM) IP() int32 { return vm.ip }
func (vm *VM) SP() int32 { return vm.stack.SP() }

// Call invokes the compiled function named name (looked up via the ndb
// symbol table) with args, converts the top-of-stack result to a Go value
// per the function's declared return type, and returns it. A void
// function returns nil.
func (vm *VM) Call(name string, args ...interface{}) (interface{}, error) {
	if vm.ndb == nil {
		return nil, fmt.Errorf("vm: %w: no debug symbols loaded, cannot resolve %q by name", nwerr.ErrNotFound, name)
	}
	fn, ok := vm.ndb.FunctionByName(name)
	if !ok {
		return nil, fmt.Errorf("vm: %w: function %q", nwerr.ErrNotFound, name)
	}
	if len(args) != len(fn.Args) {
		return nil, fmt.Errorf("vm: %w: %q expects %d arguments, got %d", nwerr.ErrVM, name, len(fn.Args), len(args))
	}

	retSlot := fn.ReturnType != langspec.TypeVoid
	if retSlot {
		pushZero(vm.stack, fn.ReturnType)
	}
	for i, a := range args {
		if err := pushValue(vm.stack, fn.Args[i].Type, a); err != nil {
			return nil, fmt.Errorf("vm: %w: argument %d to %q: %v", nwerr.ErrVM, i, name, err)
		}
	}

	vm.callStack = append(vm.callStack, frame{returnIP: haltIP, savedBP: vm.bp})
	vm.bp = vm.stack.SP()
	vm.ip = fn.StartAddr

	if err := vm.run(); err != nil {
		return nil, err
	}

	if !retSlot {
		return nil, nil
	}
	return popValue(vm.stack, fn.ReturnType), nil
}

// Run begins execution at the script's default entry point (offset
// immediately after the NCS header) and runs to completion. It is the
// equivalent of invoking a script's implicit main/StartingConditional
// entry rather than a named subroutine.
func (vm *VM) Run() error {
	vm.callStack = append(vm.callStack, frame{returnIP: haltIP, savedBP: vm.bp})
	vm.ip = 13 // immediately past the fixed NCS header
	return vm.run()
}

func (vm *VM) run() error {
	for {
		inst, ok := vm.prog.At(vm.ip)
		if !ok {
			return fmt.Errorf("vm: %w: no instruction at offset %d", nwerr.ErrVM, vm.ip)
		}
		jumped, err := vm.step(inst)
		if err != nil {
			return err
		}
		if jumped == haltIP {
			return nil
		}
		if jumped != 0 {
			vm.ip = jumped
			continue
		}
		vm.ip += inst.Len
	}
}

// step executes one instruction. It returns a nonzero next-IP when control
// flow jumped (or haltIP when the outermost call returned), and zero when
// the caller should simply advance past the instruction as usual.
func (vm *VM) step(inst asm.Instruction) (int32, error) {
	s := vm.stack
	switch inst.Opcode {
	case asm.OpNop:
		return 0, nil

	case asm.OpConstant:
		switch inst.Auxcode {
		case asm.AuxTypeInt:
			s.PushInt(inst.Operands.Int32)
		case asm.AuxTypeFloat:
			s.PushFloat(inst.Operands.Float32)
		case asm.AuxTypeString:
			s.PushString(inst.Operands.Str)
		case asm.AuxTypeObject:
			obj, err := NewObject(int32(inst.Operands.Uint32))
			if err != nil {
				return 0, fmt.Errorf("vm: %w", err)
			}
			s.PushObject(obj)
		default:
			return 0, fmt.Errorf("vm: %w: CONSTANT with unsupported auxcode 0x%02x", nwerr.ErrVM, inst.Auxcode)
		}
		return 0, nil

	case asm.OpReserve:
		switch inst.Auxcode {
		case asm.AuxTypeInt:
			s.PushInt(0)
		case asm.AuxTypeFloat:
			s.PushFloat(0)
		case asm.AuxTypeString:
			s.PushString("")
		case asm.AuxTypeObject:
			s.PushObject(Invalid)
		default:
			return 0, fmt.Errorf("vm: %w: RSADD with unsupported auxcode 0x%02x", nwerr.ErrVM, inst.Auxcode)
		}
		return 0, nil

	case asm.OpCopyTopSP:
		s.CopyToTop(inst.Operands.Offset, int32(inst.Operands.Size))
		return 0, nil
	case asm.OpCopyDownSP:
		s.Assign(inst.Operands.Offset, -int32(inst.Operands.Size), int32(inst.Operands.Size))
		return 0, nil
	case asm.OpCopyTopBP:
		s.CopyToTop(inst.Operands.Offset+(vm.bp-s.SP()), int32(inst.Operands.Size))
		return 0, nil
	case asm.OpCopyDownBP:
		s.Assign(inst.Operands.Offset+(vm.bp-s.SP()), -int32(inst.Operands.Size), int32(inst.Operands.Size))
		return 0, nil

	case asm.OpMoveSP:
		s.SetSP(s.SP() + inst.Operands.Int32)
		return 0, nil
	case asm.OpDecrementSP, asm.OpIncrementSP, asm.OpDecrementBP, asm.OpIncrementBP:
		return 0, vm.stepIncDec(inst)

	case asm.OpAdd, asm.OpSubtract, asm.OpMultiply, asm.OpDivide, asm.OpModulo:
		return 0, vm.stepArith(inst)
	case asm.OpNegate:
		return 0, vm.stepUnary(inst)
	case asm.OpEqual, asm.OpNotEqual, asm.OpGreater, asm.OpGreaterEqual, asm.OpLess, asm.OpLessEqual:
		return 0, vm.stepCompare(inst)
	case asm.OpLogicalAnd, asm.OpLogicalOr, asm.OpBitwiseOr, asm.OpBitwiseXor, asm.OpBitwiseAnd,
		asm.OpShiftLeft, asm.OpShiftRight, asm.OpUShiftRight:
		return 0, vm.stepBitwise(inst)
	case asm.OpNot:
		s.PushInt(boolToInt(s.PopInt() == 0))
		return 0, nil
	case asm.OpBitwiseNot:
		s.PushInt(^s.PopInt())
		return 0, nil

	case asm.OpJump:
		return inst.Offset + inst.Operands.Int32, nil
	case asm.OpJumpZero:
		v := s.PopInt()
		if v == 0 {
			return inst.Offset + inst.Operands.Int32, nil
		}
		return 0, nil
	case asm.OpJumpNotZero:
		v := s.PopInt()
		if v != 0 {
			return inst.Offset + inst.Operands.Int32, nil
		}
		return 0, nil
	case asm.OpJumpSubroutine:
		vm.callStack = append(vm.callStack, frame{returnIP: inst.Offset + inst.Len, savedBP: vm.bp})
		vm.bp = s.SP()
		return inst.Offset + inst.Operands.Int32, nil
	case asm.OpReturn:
		if len(vm.callStack) == 0 {
			return 0, fmt.Errorf("vm: %w: RETN with empty call stack", nwerr.ErrVM)
		}
		f := vm.callStack[len(vm.callStack)-1]
		vm.callStack = vm.callStack[:len(vm.callStack)-1]
		vm.bp = f.savedBP
		if f.returnIP == haltIP {
			return haltIP, nil
		}
		return f.returnIP, nil

	case asm.OpSaveBP:
		s.PushInt(vm.bp)
		return 0, nil
	case asm.OpRestoreBP:
		vm.bp = s.PopInt()
		return 0, nil

	case asm.OpExecuteCommand:
		return 0, vm.stepExecuteCommand(inst)

	case asm.OpDestruct:
		return 0, vm.stepDestruct(inst)

	case asm.OpStoreState, asm.OpStoreStateAll:
		return 0, fmt.Errorf("vm: %w: action-queue closures (STORE_STATE) are not supported", nwerr.ErrVM)

	default:
		return 0, fmt.Errorf("vm: %w: unimplemented opcode 0x%02x", nwerr.ErrVM, inst.Opcode)
	}
}

func (vm *VM) stepIncDec(inst asm.Instruction) error {
	s := vm.stack
	var idx int
	switch inst.Opcode {
	case asm.OpDecrementSP:
		idx = s.indexFromOffset(inst.Operands.Int32)
	case asm.OpIncrementSP:
		idx = s.indexFromOffset(inst.Operands.Int32)
	case asm.OpDecrementBP:
		idx = s.indexFromOffset(inst.Operands.Int32 + (vm.bp - s.SP()))
	case asm.OpIncrementBP:
		idx = s.indexFromOffset(inst.Operands.Int32 + (vm.bp - s.SP()))
	}
	if idx < 0 || idx >= len(s.slots) {
		return fmt.Errorf("vm: %w: increment/decrement out of range", nwerr.ErrRange)
	}
	if s.slots[idx].kind != slotInt {
		return fmt.Errorf("vm: %w: increment/decrement on non-int slot", nwerr.ErrVM)
	}
	switch inst.Opcode {
	case asm.OpDecrementSP, asm.OpDecrementBP:
		s.slots[idx].i--
	default:
		s.slots[idx].i++
	}
	return nil
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) stepArith(inst asm.Instruction) error {
	s := vm.stack
	switch inst.Auxcode {
	case asm.AuxIntInt:
		b, a := s.PopInt(), s.PopInt()
		r, err := intArith(inst.Opcode, a, b)
		if err != nil {
			return err
		}
		s.PushInt(r)
	case asm.AuxFloatFloat:
		b, a := s.PopFloat(), s.PopFloat()
		s.PushFloat(floatArith(inst.Opcode, a, b))
	case asm.AuxStringString:
		if inst.Opcode != asm.OpAdd {
			return fmt.Errorf("vm: %w: strings support only concatenation", nwerr.ErrVM)
		}
		b, a := s.PopString(), s.PopString()
		s.PushString(a + b)
	case asm.AuxVectorVector:
		if inst.Opcode != asm.OpAdd && inst.Opcode != asm.OpSubtract {
			return fmt.Errorf("vm: %w: vectors support only add/subtract", nwerr.ErrVM)
		}
		bz, by, bx := s.PopFloat(), s.PopFloat(), s.PopFloat()
		az, ay, ax := s.PopFloat(), s.PopFloat(), s.PopFloat()
		if inst.Opcode == asm.OpAdd {
			s.PushFloat(ax + bx)
			s.PushFloat(ay + by)
			s.PushFloat(az + bz)
		} else {
			s.PushFloat(ax - bx)
			s.PushFloat(ay - by)
			s.PushFloat(az - bz)
		}
	default:
		return fmt.Errorf("vm: %w: arithmetic on unsupported operand types (aux 0x%02x)", nwerr.ErrVM, inst.Auxcode)
	}
	return nil
}

func intArith(op asm.Opcode, a, b int32) (int32, error) {
	switch op {
	case asm.OpAdd:
		return a + b, nil
	case asm.OpSubtract:
		return a - b, nil
	case asm.OpMultiply:
		return a * b, nil
	case asm.OpDivide:
		if b == 0 {
			return 0, fmt.Errorf("vm: %w: integer division by zero", nwerr.ErrVM)
		}
		return a / b, nil
	case asm.OpModulo:
		if b == 0 {
			return 0, fmt.Errorf("vm: %w: integer modulo by zero", nwerr.ErrVM)
		}
		return a % b, nil
	default:
		return 0, fmt.Errorf("vm: %w: not an arithmetic opcode", nwerr.ErrVM)
	}
}

func floatArith(op asm.Opcode, a, b float32) float32 {
	switch op {
	case asm.OpAdd:
		return a + b
	case asm.OpSubtract:
		return a - b
	case asm.OpMultiply:
		return a * b
	case asm.OpDivide:
		return a / b
	default:
		return 0
	}
}

func (vm *VM) stepUnary(inst asm.Instruction) error {
	s := vm.stack
	switch inst.Auxcode {
	case asm.AuxTypeInt:
		s.PushInt(-s.PopInt())
	case asm.AuxTypeFloat:
		s.PushFloat(-s.PopFloat())
	default:
		return fmt.Errorf("vm: %w: NEG on unsupported type", nwerr.ErrVM)
	}
	return nil
}

func (vm *VM) stepCompare(inst asm.Instruction) error {
	s := vm.stack
	var result bool
	switch inst.Auxcode {
	case asm.AuxIntInt:
		b, a := s.PopInt(), s.PopInt()
		result = compareInt(inst.Opcode, a, b)
	case asm.AuxFloatFloat:
		b, a := s.PopFloat(), s.PopFloat()
		result = compareFloat(inst.Opcode, a, b)
	case asm.AuxStringString:
		b, a := s.PopString(), s.PopString()
		result = compareEq(inst.Opcode, a == b)
	case asm.AuxObjectObject:
		b, a := s.PopObject(), s.PopObject()
		result = compareEq(inst.Opcode, a == b)
	default:
		return fmt.Errorf("vm: %w: comparison on unsupported operand types", nwerr.ErrVM)
	}
	s.PushInt(boolToInt(result))
	return nil
}

func compareEq(op asm.Opcode, eq bool) bool {
	if op == asm.OpEqual {
		return eq
	}
	return !eq
}

func compareInt(op asm.Opcode, a, b int32) bool {
	switch op {
	case asm.OpEqual:
		return a == b
	case asm.OpNotEqual:
		return a != b
	case asm.OpGreater:
		return a > b
	case asm.OpGreaterEqual:
		return a >= b
	case asm.OpLess:
		return a < b
	case asm.OpLessEqual:
		return a <= b
	}
	return false
}

func compareFloat(op asm.Opcode, a, b float32) bool {
	switch op {
	case asm.OpEqual:
		return a == b
	case asm.OpNotEqual:
		return a != b
	case asm.OpGreater:
		return a > b
	case asm.OpGreaterEqual:
		return a >= b
	case asm.OpLess:
		return a < b
	case asm.OpLessEqual:
		return a <= b
	}
	return false
}

func (vm *VM) stepBitwise(inst asm.Instruction) error {
	s := vm.stack
	b, a := s.PopInt(), s.PopInt()
	var r int32
	switch inst.Opcode {
	case asm.OpLogicalAnd:
		r = boolToInt(a != 0 && b != 0)
	case asm.OpLogicalOr:
		r = boolToInt(a != 0 || b != 0)
	case asm.OpBitwiseOr:
		r = a | b
	case asm.OpBitwiseXor:
		r = a ^ b
	case asm.OpBitwiseAnd:
		r = a & b
	case asm.OpShiftLeft:
		r = a << uint32(b)
	case asm.OpShiftRight:
		r = a >> uint32(b)
	case asm.OpUShiftRight:
		r = int32(uint32(a) >> uint32(b))
	}
	s.PushInt(r)
	return nil
}

func (vm *VM) stepDestruct(inst asm.Instruction) error {
	size := inst.Operands.Three[0]
	keepOffset := inst.Operands.Three[1]
	keepSize := inst.Operands.Three[2]
	s := vm.stack
	var kept []stackSlot
	if keepSize > 0 {
		base := s.indexFromOffset(-int32(size) + int32(keepOffset))
		n := int(keepSize / 4)
		kept = append(kept, s.slots[base:base+n]...)
	}
	s.SetSP(s.SP() - int32(size))
	s.slots = append(s.slots, kept...)
	return nil
}

func (vm *VM) stepExecuteCommand(inst asm.Instruction) error {
	cmdID := int(inst.Operands.CmdID)
	if cmdID < 0 || cmdID >= len(vm.spec.Functions) {
		return fmt.Errorf("vm: %w: command id %d out of range", nwerr.ErrRange, cmdID)
	}
	fn := vm.spec.Functions[cmdID]
	argc := int(inst.Operands.Argc)
	if argc != len(fn.Args) {
		return fmt.Errorf("vm: %w: %q expects %d arguments, instruction specifies %d", nwerr.ErrVM, fn.Name, len(fn.Args), argc)
	}

	args := make([]interface{}, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = popValue(vm.stack, fn.Args[i].Type)
	}

	result, err := vm.dispatch(fn, args)
	if err != nil {
		return err
	}
	if fn.ReturnType != langspec.TypeVoid {
		if err := pushValue(vm.stack, fn.ReturnType, result); err != nil {
			return fmt.Errorf("vm: %w: return value of %q: %v", nwerr.ErrVM, fn.Name, err)
		}
	}
	return nil
}

// dispatch calls the host method named fn.Name via reflection, mirroring
// how a scripting host looks up "the function this command id names" at
// runtime rather than through a generated switch.
func (vm *VM) dispatch(fn langspec.Function, args []interface{}) (interface{}, error) {
	hv := reflect.ValueOf(vm.host)
	m := hv.MethodByName(fn.Name)
	if !m.IsValid() {
		log.Warnf("no host method for command %q (cmd id lookup)", fn.Name)
		return nil, fmt.Errorf("vm: %w: host does not implement command %q", nwerr.ErrNotFound, fn.Name)
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := m.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func pushZero(s *Stack, t langspec.Type) {
	switch t {
	case langspec.TypeInt:
		s.PushInt(0)
	case langspec.TypeFloat:
		s.PushFloat(0)
	case langspec.TypeString:
		s.PushString("")
	case langspec.TypeObject:
		s.PushObject(Invalid)
	default:
		s.PushInt(0)
	}
}

func pushValue(s *Stack, t langspec.Type, v interface{}) error {
	switch t {
	case langspec.TypeInt:
		iv, ok := v.(int32)
		if !ok {
			if i, ok2 := v.(int); ok2 {
				iv = int32(i)
			} else {
				return fmt.Errorf("expected int32, got %T", v)
			}
		}
		s.PushInt(iv)
	case langspec.TypeFloat:
		fv, ok := v.(float32)
		if !ok {
			return fmt.Errorf("expected float32, got %T", v)
		}
		s.PushFloat(fv)
	case langspec.TypeString:
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		s.PushString(sv)
	case langspec.TypeObject:
		ov, ok := v.(Object)
		if !ok {
			return fmt.Errorf("expected Object, got %T", v)
		}
		s.PushObject(ov)
	default:
		return fmt.Errorf("unsupported value type %v", t)
	}
	return nil
}

func popValue(s *Stack, t langspec.Type) interface{} {
	switch t {
	case langspec.TypeInt:
		return s.PopInt()
	case langspec.TypeFloat:
		return s.PopFloat()
	case langspec.TypeString:
		return s.PopString()
	case langspec.TypeObject:
		return s.PopObject()
	default:
		return nil
	}
}

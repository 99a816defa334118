package vm

import (
	"fmt"

	"github.com/nwnkit/nwngo/internal/nwerr"
)

// Object is an NWScript object reference. The two sentinel values mirror
// the engine's own: SELF is the implicit caller, INVALID is the "no such
// object" result returned by failed lookups.
type Object struct {
	id int32
}

const (
	selfID    = 0
	invalidID = 0x7F000000
)

// NewObject constructs an Object wrapping id. id must be non-negative and
// must not equal 0x80000000, the one bit pattern the engine reserves.
func NewObject(id int32) (Object, error) {
	if id < 0 || uint32(id) == 0x80000000 {
		return Object{}, fmt.Errorf("vm: %w: invalid object id %d", nwerr.ErrRange, id)
	}
	return Object{id: id}, nil
}

// Self is the implicit caller object (id 0).
var Self = Object{id: selfID}

// Invalid is the "object not found" sentinel.
var Invalid = Object{id: invalidID}

// IsInvalid reports whether o is the Invalid sentinel; Invalid is the
// object equivalent of a nil pointer and is "falsy" in script logic.
func (o Object) IsInvalid() bool { return o.id == invalidID }

// ID returns the raw object id.
func (o Object) ID() int32 { return o.id }

func (o Object) String() string {
	switch o.id {
	case invalidID:
		return "Object.INVALID"
	case selfID:
		return "Object.SELF"
	default:
		return fmt.Sprintf("Object(0x%X)", o.id)
	}
}

// Vector is a 3-component float vector, one of the VM's scalar types.
type Vector struct {
	X, Y, Z float32
}

// slotKind tags which union field of a stackSlot is live.
type slotKind int

const (
	slotInt slotKind = iota
	slotFloat
	slotString
	slotObject
	slotVector
	slotStructRef
)

// stackSlot is one 4-byte runstack cell. Strings and structs occupy a
// single logical slot even though their wire encoding is larger; vectors
// occupy three float cells and are pushed and popped one component at a
// time.
type stackSlot struct {
	kind   slotKind
	i      int32
	f      float32
	s      string
	o      Object
	structID int32
}

// Stack is the NCS runtime's single combined data/return/call stack.
// Every cell is typed; popping with the wrong accessor is a caller bug
// and panics, matching how a miscompiled or hand-assembled program would
// corrupt state rather than silently coerce.
type Stack struct {
	slots []stackSlot
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// SP is the current stack pointer, measured in bytes (4 per slot), the
// unit MOVSP and the CPTOPSP/CPDOWNSP offsets use.
func (s *Stack) SP() int32 { return int32(len(s.slots)) * 4 }

// SetSP truncates or (if growing) pads the stack with zeroed int slots so
// SP() becomes n. n must be a multiple of 4.
func (s *Stack) SetSP(n int32) {
	want := int(n / 4)
	if want <= len(s.slots) {
		s.slots = s.slots[:want]
		return
	}
	for len(s.slots) < want {
		s.slots = append(s.slots, stackSlot{kind: slotInt})
	}
}

func (s *Stack) PushInt(v int32) { s.slots = append(s.slots, stackSlot{kind: slotInt, i: v}) }

func (s *Stack) PopInt() int32 {
	v := s.top()
	s.pop()
	if v.kind != slotInt {
		panic("vm: stack top is not an int")
	}
	return v.i
}

func (s *Stack) PushFloat(v float32) { s.slots = append(s.slots, stackSlot{kind: slotFloat, f: v}) }

func (s *Stack) PopFloat() float32 {
	v := s.top()
	s.pop()
	if v.kind != slotFloat {
		panic("vm: stack top is not a float")
	}
	return v.f
}

func (s *Stack) PushString(v string) { s.slots = append(s.slots, stackSlot{kind: slotString, s: v}) }

func (s *Stack) PopString() string {
	v := s.top()
	s.pop()
	if v.kind != slotString {
		panic("vm: stack top is not a string")
	}
	return v.s
}

// PushObject pushes o. A nil-equivalent caller should pass Invalid rather
// than a zero Object, matching the engine's convention that "no object"
// is always a concrete, falsy Object value rather than the absence of one.
func (s *Stack) PushObject(o Object) { s.slots = append(s.slots, stackSlot{kind: slotObject, o: o}) }

func (s *Stack) PopObject() Object {
	v := s.top()
	s.pop()
	if v.kind != slotObject {
		panic("vm: stack top is not an object")
	}
	return v.o
}

func (s *Stack) PushStructRef(id int32) {
	s.slots = append(s.slots, stackSlot{kind: slotStructRef, structID: id})
}

func (s *Stack) PopStructRef() int32 {
	v := s.top()
	s.pop()
	if v.kind != slotStructRef {
		panic("vm: stack top is not a struct reference")
	}
	return v.structID
}

func (s *Stack) top() stackSlot {
	if len(s.slots) == 0 {
		panic("vm: pop from empty stack")
	}
	return s.slots[len(s.slots)-1]
}

func (s *Stack) pop() {
	s.slots = s.slots[:len(s.slots)-1]
}

// Assign copies the slot at src (byte offset from the top, as the
// CPTOPSP/CPTOPBP family addresses it: negative offsets reach toward the
// bottom of the stack) onto the slot at dst, without altering SP.
func (s *Stack) Assign(dstOffset, srcOffset int32, size int32) {
	n := int(size / 4)
	dstBase := s.indexFromOffset(dstOffset)
	srcBase := s.indexFromOffset(srcOffset)
	copied := make([]stackSlot, n)
	for i := 0; i < n; i++ {
		copied[i] = s.slots[srcBase+i]
	}
	for i := 0; i < n; i++ {
		s.slots[dstBase+i] = copied[i]
	}
}

// CopyToTop pushes n bytes' worth of slots read from offset (relative to
// the current top), implementing the CPTOPSP/CPTOPBP "fetch" instructions.
func (s *Stack) CopyToTop(offset int32, size int32) {
	n := int(size / 4)
	base := s.indexFromOffset(offset)
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, s.slots[base+i])
	}
}

// indexFromOffset converts a negative byte offset from the current top
// (as NCS encodes CPDOWNSP/CPTOPSP operands) into an absolute slot index.
func (s *Stack) indexFromOffset(offset int32) int {
	return len(s.slots) + int(offset/4)
}

// Len returns the number of logical slots currently on the stack.
func (s *Stack) Len() int { return len(s.slots) }

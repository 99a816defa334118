// Package gff implements the Generic File Format codec: a typed tree
// serialization used throughout the engine for everything from area
// instances to character blueprints.
package gff

import (
	"fmt"
	"math"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Kind tags the fourteen leaf value kinds, plus the two composite kinds
// (Struct, List) that only ever appear nested inside a Struct's fields.
type Kind uint32

const (
	KindByte      Kind = 0
	KindChar      Kind = 1
	KindWord      Kind = 2
	KindShort     Kind = 3
	KindDword     Kind = 4
	KindInt       Kind = 5
	KindDword64   Kind = 6
	KindInt64     Kind = 7
	KindFloat     Kind = 8
	KindDouble    Kind = 9
	KindCExoString Kind = 10
	KindResRef    Kind = 11
	KindCExoLocString Kind = 12
	KindVoid      Kind = 13
	KindStruct    Kind = 14
	KindList      Kind = 15
)

func (k Kind) String() string {
	names := [...]string{
		"Byte", "Char", "Word", "Short", "Dword", "Int", "Dword64", "Int64",
		"Float", "Double", "CExoString", "ResRef", "CExoLocString", "Void",
		"Struct", "List",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// complexKinds are the leaf kinds whose value never fits inline in a field
// record and is always stored as an offset into field-data.
var complexKinds = map[Kind]bool{
	KindDword64: true, KindInt64: true, KindDouble: true,
	KindCExoString: true, KindResRef: true, KindCExoLocString: true, KindVoid: true,
}

// Value is a tagged union over the fourteen GFF leaf kinds plus Struct and
// List, mirroring the wire format's own closed type set instead of an
// inheritance hierarchy.
type Value struct {
	kind Kind

	u64 uint64 // Byte, Word, Dword, Dword64 (unsigned storage)
	i64 int64  // Char, Short, Int, Int64 (signed storage)
	f32 float32
	f64 float64
	str string          // CExoString, ResRef
	loc LocString        // CExoLocString
	raw []byte           // Void
	st  *Struct           // Struct
	list []*Struct        // List
}

// LocString is a localized string map keyed by (language, gender), plus a
// numeric str_ref that identifies an entry in an external TLK table (-1 when
// absent, matching the engine's "no strref" sentinel).
type LocString struct {
	StrRef  int32
	Strings map[nwtypes.GenderedLanguage]string
}

func NewLocString() LocString {
	return LocString{StrRef: -1, Strings: map[nwtypes.GenderedLanguage]string{}}
}

// Byte constructs a KindByte leaf (0..255).
func Byte(v uint8) Value { return Value{kind: KindByte, u64: uint64(v)} }

// Char constructs a KindChar leaf (-128..127).
func Char(v int8) Value { return Value{kind: KindChar, i64: int64(v)} }

// Word constructs a KindWord leaf (0..65535).
func Word(v uint16) Value { return Value{kind: KindWord, u64: uint64(v)} }

// Short constructs a KindShort leaf (-32768..32767).
func Short(v int16) Value { return Value{kind: KindShort, i64: int64(v)} }

// Dword constructs a KindDword leaf (0..2^32-1).
func Dword(v uint32) Value { return Value{kind: KindDword, u64: uint64(v)} }

// Int constructs a KindInt leaf (-2^31..2^31-1).
func Int(v int32) Value { return Value{kind: KindInt, i64: int64(v)} }

// Dword64 constructs a KindDword64 leaf (0..2^64-1).
func Dword64(v uint64) Value { return Value{kind: KindDword64, u64: v} }

// Int64 constructs a KindInt64 leaf.
func Int64(v int64) Value { return Value{kind: KindInt64, i64: v} }

// Float constructs a KindFloat leaf.
func Float(v float32) Value { return Value{kind: KindFloat, f32: v} }

// Double constructs a KindDouble leaf.
func Double(v float64) Value { return Value{kind: KindDouble, f64: v} }

// CExoString constructs a KindCExoString leaf.
func CExoString(v string) Value { return Value{kind: KindCExoString, str: v} }

// ResRef constructs a KindResRef leaf. The engine's resref field is at most
// 16 bytes once codepage-encoded. The constructor rejects strings longer
// than 16 bytes as Go (UTF-8) strings; the writer checks the encoded length
// again under the active codepage.
func ResRef(v string) (Value, error) {
	if len(v) > 16 {
		return Value{}, fmt.Errorf("gff: %w: resref %q longer than 16 bytes", nwerr.ErrInvalidResref, v)
	}
	return Value{kind: KindResRef, str: v}, nil
}

// CExoLocString constructs a KindCExoLocString leaf.
func CExoLocString(v LocString) Value { return Value{kind: KindCExoLocString, loc: v} }

// VoidValue constructs a KindVoid leaf: an opaque byte blob.
func VoidValue(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{kind: KindVoid, raw: cp}
}

// StructValue wraps a *Struct as a field value.
func StructValue(s *Struct) Value { return Value{kind: KindStruct, st: s} }

// ListValue wraps a slice of *Struct as a field value.
func ListValue(items []*Struct) Value {
	cp := make([]*Struct, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsByte() uint8       { return uint8(v.u64) }
func (v Value) AsChar() int8        { return int8(v.i64) }
func (v Value) AsWord() uint16      { return uint16(v.u64) }
func (v Value) AsShort() int16      { return int16(v.i64) }
func (v Value) AsDword() uint32     { return uint32(v.u64) }
func (v Value) AsInt() int32        { return int32(v.i64) }
func (v Value) AsDword64() uint64   { return v.u64 }
func (v Value) AsInt64() int64      { return v.i64 }
func (v Value) AsFloat() float32    { return v.f32 }
func (v Value) AsDouble() float64   { return v.f64 }
func (v Value) AsString() string    { return v.str }
func (v Value) AsResRef() string    { return v.str }
func (v Value) AsLocString() LocString { return v.loc }
func (v Value) AsVoid() []byte      { return v.raw }
func (v Value) AsStruct() *Struct   { return v.st }
func (v Value) AsList() []*Struct   { return v.list }

// Equal reports deep, field-set equality (as opposed to byte-identity of the
// serialized form, which the format does not guarantee on round-trip).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindByte, KindWord, KindDword, KindDword64:
		return v.u64 == o.u64
	case KindChar, KindShort, KindInt, KindInt64:
		return v.i64 == o.i64
	case KindFloat:
		return v.f32 == o.f32 || (math.IsNaN(float64(v.f32)) && math.IsNaN(float64(o.f32)))
	case KindDouble:
		return v.f64 == o.f64 || (math.IsNaN(v.f64) && math.IsNaN(o.f64))
	case KindCExoString, KindResRef:
		return v.str == o.str
	case KindCExoLocString:
		if v.loc.StrRef != o.loc.StrRef || len(v.loc.Strings) != len(o.loc.Strings) {
			return false
		}
		for k, s := range v.loc.Strings {
			if o.loc.Strings[k] != s {
				return false
			}
		}
		return true
	case KindVoid:
		if len(v.raw) != len(o.raw) {
			return false
		}
		for i := range v.raw {
			if v.raw[i] != o.raw[i] {
				return false
			}
		}
		return true
	case KindStruct:
		return v.st.Equal(o.st)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

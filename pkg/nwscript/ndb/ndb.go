// Package ndb parses the compiler's debug-symbol sidecar for a compiled
// script: the source file list, struct layouts, function table (name to
// entry address), variable scopes, and an address-to-line map. None of
// this is required to execute a script, but it is what lets a caller
// resolve Script.Call(name, ...) by name instead of by raw byte offset,
// and what a future disassembler would use to annotate output.
//
// The sidecar is a line-oriented text format, one record per line, fields
// separated by single spaces; records are grouped into blocks introduced
// by a FUNCTION or STRUCT line and closed by a blank line.
package ndb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/nwscript/langspec"
)

// StructRef names a struct declared elsewhere in the debug info by id
// rather than embedding it inline, letting several functions or fields
// share one layout.
type StructRef struct {
	ID int
}

// Field is one member of a Struct.
type Field struct {
	Type langspec.Type
	Name string
}

// Struct is a named aggregate of Fields, addressable by ID from a
// StructRef.
type Struct struct {
	ID     int
	Label  string
	Fields []Field
}

// FuncArg is one parameter of a Function, as recorded by the compiler
// rather than as declared in langspec (a user-defined function has no
// langspec entry at all).
type FuncArg struct {
	Type langspec.Type
}

// Function locates one compiled script function by its entry address and
// describes its calling shape.
type Function struct {
	Label      string
	StartAddr  int32
	EndAddr    int32
	ReturnType langspec.Type
	Args       []FuncArg
}

// Variable is one local or global with the byte-offset range over which
// its debug name applies.
type Variable struct {
	Name       string
	Type       langspec.Type
	ScopeStart int32
	ScopeEnd   int32
}

// Line maps one instruction address to a source file and line number.
type Line struct {
	Addr   int32
	File   int
	Number int
}

// Ndb is the fully parsed sidecar: every source file referenced, every
// struct and function the compiler emitted debug info for, every tracked
// variable, and the address-to-line table.
type Ndb struct {
	Files     []string
	Structs   []Struct
	Functions []Function
	Variables []Variable
	Lines     []Line

	structByID   map[int]int
	funcByName   map[string]int
}

// StructByID returns the struct registered under ref.
func (n *Ndb) StructByID(ref StructRef) (Struct, bool) {
	i, ok := n.structByID[ref.ID]
	if !ok {
		return Struct{}, false
	}
	return n.Structs[i], ok
}

// FunctionByName returns the function labeled name.
func (n *Ndb) FunctionByName(name string) (Function, bool) {
	i, ok := n.funcByName[name]
	if !ok {
		return Function{}, false
	}
	return n.Functions[i], true
}

// LineFor returns the source line record for the instruction at addr, the
// nearest preceding recorded address if addr itself was not a statement
// boundary.
func (n *Ndb) LineFor(addr int32) (Line, bool) {
	var best Line
	found := false
	for _, l := range n.Lines {
		if l.Addr <= addr && (!found || l.Addr > best.Addr) {
			best = l
			found = true
		}
	}
	return best, found
}

var fieldTypeNames = map[string]langspec.Type{
	"void": langspec.TypeVoid, "int": langspec.TypeInt, "float": langspec.TypeFloat,
	"string": langspec.TypeString, "object": langspec.TypeObject, "vector": langspec.TypeVector,
	"effect": langspec.TypeEffect, "event": langspec.TypeEvent, "location": langspec.TypeLocation,
	"talent": langspec.TypeTalent, "itemproperty": langspec.TypeItemProperty, "action": langspec.TypeAction,
}

func parseType(s string) (langspec.Type, error) {
	t, ok := fieldTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("ndb: %w: unknown type %q", nwerr.ErrFormat, s)
	}
	return t, nil
}

// Read parses a debug-symbol sidecar.
func Read(r io.Reader) (*Ndb, error) {
	sc := bufio.NewScanner(r)
	n := &Ndb{structByID: map[int]int{}, funcByName: map[string]int{}}

	var curFunc *Function
	var curStruct *Struct

	closeBlock := func() {
		if curFunc != nil {
			n.funcByName[curFunc.Label] = len(n.Functions)
			n.Functions = append(n.Functions, *curFunc)
			curFunc = nil
		}
		if curStruct != nil {
			n.structByID[curStruct.ID] = len(n.Structs)
			n.Structs = append(n.Structs, *curStruct)
			curStruct = nil
		}
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			closeBlock()
			continue
		}
		fields := strings.Fields(line)
		tag := fields[0]
		switch tag {
		case "FILE":
			if len(fields) < 3 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed FILE record", nwerr.ErrFormat, lineNo)
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			for len(n.Files) <= idx {
				n.Files = append(n.Files, "")
			}
			n.Files[idx] = strings.Join(fields[2:], " ")
		case "STRUCT":
			closeBlock()
			if len(fields) < 3 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed STRUCT record", nwerr.ErrFormat, lineNo)
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			curStruct = &Struct{ID: id, Label: fields[2]}
		case "FIELD":
			if curStruct == nil {
				return nil, fmt.Errorf("ndb: %w: line %d: FIELD outside STRUCT block", nwerr.ErrFormat, lineNo)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed FIELD record", nwerr.ErrFormat, lineNo)
			}
			ty, err := parseType(fields[1])
			if err != nil {
				return nil, err
			}
			curStruct.Fields = append(curStruct.Fields, Field{Type: ty, Name: fields[2]})
		case "FUNCTION":
			closeBlock()
			if len(fields) < 5 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed FUNCTION record", nwerr.ErrFormat, lineNo)
			}
			start, err := strconv.ParseInt(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			end, err := strconv.ParseInt(fields[3], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			ret, err := parseType(fields[4])
			if err != nil {
				return nil, err
			}
			curFunc = &Function{Label: fields[1], StartAddr: int32(start), EndAddr: int32(end), ReturnType: ret}
		case "ARG":
			if curFunc == nil {
				return nil, fmt.Errorf("ndb: %w: line %d: ARG outside FUNCTION block", nwerr.ErrFormat, lineNo)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed ARG record", nwerr.ErrFormat, lineNo)
			}
			ty, err := parseType(fields[1])
			if err != nil {
				return nil, err
			}
			curFunc.Args = append(curFunc.Args, FuncArg{Type: ty})
		case "VAR":
			if len(fields) < 5 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed VAR record", nwerr.ErrFormat, lineNo)
			}
			ty, err := parseType(fields[2])
			if err != nil {
				return nil, err
			}
			start, err := strconv.ParseInt(fields[3], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			end, err := strconv.ParseInt(fields[4], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			n.Variables = append(n.Variables, Variable{Name: fields[1], Type: ty, ScopeStart: int32(start), ScopeEnd: int32(end)})
		case "LINE":
			if len(fields) < 4 {
				return nil, fmt.Errorf("ndb: %w: line %d: malformed LINE record", nwerr.ErrFormat, lineNo)
			}
			addr, err := strconv.ParseInt(fields[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			fileIdx, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			num, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("ndb: %w: line %d: %v", nwerr.ErrFormat, lineNo, err)
			}
			n.Lines = append(n.Lines, Line{Addr: int32(addr), File: fileIdx, Number: num})
		default:
			return nil, fmt.Errorf("ndb: %w: line %d: unknown record tag %q", nwerr.ErrFormat, lineNo, tag)
		}
	}
	closeBlock()
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ndb: %w", err)
	}
	return n, nil
}

// Package langspec parses the nwscript.nss-style declaration file that
// documents the engine's built-in constants and command functions: the
// same source a script compiler consults to resolve identifiers and assign
// each command function the id that shows up as an EXECUTE_COMMAND operand.
//
// It is a declarations-only parser. It does not evaluate expressions or
// execute statements; only `TYPE NAME = LITERAL;` constant declarations and
// `TYPE NAME(ARGS);` function prototypes are recognized.
package langspec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nwnkit/nwngo/internal/nwerr"
)

// Type is a scalar or engine-structure type usable in a constant or
// function-argument declaration.
type Type int

const (
	TypeVoid Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeObject
	TypeVector
	TypeEffect
	TypeEvent
	TypeLocation
	TypeTalent
	TypeItemProperty
	TypeAction
)

var typeNames = map[string]Type{
	"void":         TypeVoid,
	"int":          TypeInt,
	"float":        TypeFloat,
	"string":       TypeString,
	"object":       TypeObject,
	"vector":       TypeVector,
	"effect":       TypeEffect,
	"event":        TypeEvent,
	"location":     TypeLocation,
	"talent":       TypeTalent,
	"itemproperty": TypeItemProperty,
	"action":       TypeAction,
}

func (t Type) String() string {
	for name, tt := range typeNames {
		if tt == t {
			return name
		}
	}
	return "unknown"
}

// Literal is a constant or default-argument value. Exactly one field is
// meaningful, selected by Type.
type Literal struct {
	Type   Type
	Int    int32
	Float  float32
	String string
}

// Constant is one `TYPE NAME = LITERAL;` declaration.
type Constant struct {
	Type  Type
	Name  string
	Value Literal
}

// Arg is one function parameter, with its default value if the
// declaration supplied one.
type Arg struct {
	Type    Type
	Name    string
	Default *Literal
}

// Function is one `TYPE NAME(ARGS);` prototype. ID is its position among
// function declarations in the source, the same index an EXECUTE_COMMAND
// instruction's cmd_id operand addresses.
type Function struct {
	ID         int
	ReturnType Type
	Name       string
	Args       []Arg
	Doc        []string
}

// Spec holds every constant and function declaration parsed from a source,
// plus a by-name index for function lookup.
type Spec struct {
	Constants []Constant
	Functions []Function

	byName map[string]int
}

// FunctionByName returns the function declared under name, if any.
func (s *Spec) FunctionByName(name string) (Function, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Function{}, false
	}
	return s.Functions[i], true
}

// Read parses an nwscript.nss-style declarations file from r.
func Read(r io.Reader) (*Spec, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	spec := &Spec{byName: map[string]int{}}
	constByName := map[string]Literal{}

	var pendingDoc []string
	var stmt strings.Builder

	flush := func(line string) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if stmt.Len() == 0 {
				pendingDoc = nil
			}
			return nil
		}
		if doc, ok := strings.CutPrefix(trimmed, "//"); ok {
			if stmt.Len() == 0 {
				pendingDoc = append(pendingDoc, strings.TrimSpace(doc))
			}
			return nil
		}
		stmt.WriteString(" ")
		stmt.WriteString(trimmed)
		if !strings.Contains(trimmed, ";") {
			return nil
		}
		decl := strings.TrimSpace(stmt.String())
		stmt.Reset()
		doc := pendingDoc
		pendingDoc = nil
		return parseDecl(decl, doc, spec, constByName)
	}

	for sc.Scan() {
		if err := flush(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("langspec: %w", err)
	}
	return spec, nil
}

func parseDecl(decl string, doc []string, spec *Spec, consts map[string]Literal) error {
	decl = strings.TrimSuffix(strings.TrimSpace(decl), ";")
	if decl == "" {
		return nil
	}

	if idx := strings.Index(decl, "("); idx >= 0 && strings.HasSuffix(decl, ")") {
		return parseFunction(decl, idx, doc, spec, consts)
	}
	return parseConstant(decl, spec, consts)
}

func parseConstant(decl string, spec *Spec, consts map[string]Literal) error {
	eq := strings.Index(decl, "=")
	if eq < 0 {
		// A declaration with no '=' and no argument list is not a
		// constant we can model; ignore rather than error, since declarations files
		// occasionally forward-declare structs this parser does not
		// track.
		return nil
	}
	head := strings.TrimSpace(decl[:eq])
	valueSrc := strings.TrimSpace(decl[eq+1:])

	fields := strings.Fields(head)
	if len(fields) != 2 {
		return fmt.Errorf("langspec: %w: malformed constant declaration %q", nwerr.ErrFormat, decl)
	}
	ty, ok := typeNames[fields[0]]
	if !ok {
		return fmt.Errorf("langspec: %w: unknown type %q", nwerr.ErrFormat, fields[0])
	}
	name := fields[1]

	lit, err := parseLiteral(valueSrc, ty, consts)
	if err != nil {
		return err
	}
	spec.Constants = append(spec.Constants, Constant{Type: ty, Name: name, Value: lit})
	consts[name] = lit
	return nil
}

func parseFunction(decl string, parenIdx int, doc []string, spec *Spec, consts map[string]Literal) error {
	head := strings.TrimSpace(decl[:parenIdx])
	argsSrc := strings.TrimSpace(decl[parenIdx+1 : len(decl)-1])

	fields := strings.Fields(head)
	if len(fields) != 2 {
		return fmt.Errorf("langspec: %w: malformed function declaration %q", nwerr.ErrFormat, decl)
	}
	retType, ok := typeNames[fields[0]]
	if !ok {
		return fmt.Errorf("langspec: %w: unknown return type %q", nwerr.ErrFormat, fields[0])
	}
	name := fields[1]

	var args []Arg
	if argsSrc != "" {
		for _, part := range splitArgs(argsSrc) {
			arg, err := parseArg(part, consts)
			if err != nil {
				return err
			}
			args = append(args, arg)
		}
	}

	fn := Function{
		ID:         len(spec.Functions),
		ReturnType: retType,
		Name:       name,
		Args:       args,
		Doc:        doc,
	}
	spec.byName[name] = len(spec.Functions)
	spec.Functions = append(spec.Functions, fn)
	return nil
}

// splitArgs splits a comma-separated argument list, respecting nested
// parens so a vector-valued default like "vector(0.0, 0.0, 0.0)" is not
// split on its internal commas.
func splitArgs(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseArg(part string, consts map[string]Literal) (Arg, error) {
	var defaultSrc string
	var hasDefault bool
	if eq := strings.Index(part, "="); eq >= 0 {
		defaultSrc = strings.TrimSpace(part[eq+1:])
		part = strings.TrimSpace(part[:eq])
		hasDefault = true
	}
	fields := strings.Fields(part)
	if len(fields) != 2 {
		return Arg{}, fmt.Errorf("langspec: %w: malformed argument %q", nwerr.ErrFormat, part)
	}
	ty, ok := typeNames[fields[0]]
	if !ok {
		return Arg{}, fmt.Errorf("langspec: %w: unknown argument type %q", nwerr.ErrFormat, fields[0])
	}
	arg := Arg{Type: ty, Name: fields[1]}
	if hasDefault {
		lit, err := parseLiteral(defaultSrc, ty, consts)
		if err != nil {
			return Arg{}, err
		}
		arg.Default = &lit
	}
	return arg, nil
}

func parseLiteral(src string, ty Type, consts map[string]Literal) (Literal, error) {
	src = strings.TrimSpace(src)
	if lit, ok := consts[src]; ok {
		return lit, nil
	}
	switch src {
	case "TRUE":
		return Literal{Type: TypeInt, Int: 1}, nil
	case "FALSE":
		return Literal{Type: TypeInt, Int: 0}, nil
	}
	if strings.HasPrefix(src, `"`) && strings.HasSuffix(src, `"`) && len(src) >= 2 {
		return Literal{Type: TypeString, String: src[1 : len(src)-1]}, nil
	}
	switch ty {
	case TypeInt, TypeObject:
		n, err := strconv.ParseInt(src, 10, 32)
		if err != nil {
			return Literal{}, fmt.Errorf("langspec: %w: bad integer literal %q", nwerr.ErrFormat, src)
		}
		return Literal{Type: TypeInt, Int: int32(n)}, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSuffix(src, "f"), 32)
		if err != nil {
			return Literal{}, fmt.Errorf("langspec: %w: bad float literal %q", nwerr.ErrFormat, src)
		}
		return Literal{Type: TypeFloat, Float: float32(f)}, nil
	case TypeString:
		return Literal{Type: TypeString, String: src}, nil
	default:
		// Structured defaults (vector(...), location, etc.) are kept
		// as opaque text; callers that need them resolved must look up
		// the corresponding named constant themselves. Object defaults
		// take the integer path above, so a name such as OBJECT_SELF
		// resolves only when it was declared as a constant earlier.
		return Literal{Type: ty, String: src}, nil
	}
}

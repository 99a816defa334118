package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nwnkit/nwngo/pkg/gff"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

type gffDumpCmd struct {
	Path     string `arg:"" help:"Path to a GFF file (.gff, .utc, .are, ...)."`
	Codepage int    `default:"1252" help:"Codepage for embedded text."`
}

func (c *gffDumpCmd) Run() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	root, magic, err := gff.Read(f, nwtypes.CodePage(c.Codepage))
	if err != nil {
		return err
	}
	fmt.Printf("magic: %s\n", magic)
	dumpStruct(root, 0)
	return nil
}

func dumpStruct(s *gff.Struct, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range s.Fields() {
		dumpValue(indent, f.Label, f.Value, depth)
	}
}

func dumpValue(indent, label string, v gff.Value, depth int) {
	switch v.Kind() {
	case gff.KindStruct:
		fmt.Printf("%s%s: Struct(id=%d)\n", indent, label, v.AsStruct().ID)
		dumpStruct(v.AsStruct(), depth+1)
	case gff.KindList:
		items := v.AsList()
		fmt.Printf("%s%s: List(%d)\n", indent, label, len(items))
		for i, item := range items {
			fmt.Printf("%s  [%d]:\n", indent, i)
			dumpStruct(item, depth+2)
		}
	case gff.KindCExoString, gff.KindResRef:
		fmt.Printf("%s%s: %s = %q\n", indent, label, v.Kind(), v.AsString())
	case gff.KindCExoLocString:
		loc := v.AsLocString()
		fmt.Printf("%s%s: CExoLocString(strref=%d, %d translations)\n", indent, label, loc.StrRef, len(loc.Strings))
	case gff.KindVoid:
		fmt.Printf("%s%s: Void(%d bytes)\n", indent, label, len(v.AsVoid()))
	case gff.KindFloat:
		fmt.Printf("%s%s: Float = %v\n", indent, label, v.AsFloat())
	case gff.KindDouble:
		fmt.Printf("%s%s: Double = %v\n", indent, label, v.AsDouble())
	default:
		fmt.Printf("%s%s: %s = %d\n", indent, label, v.Kind(), asIntLike(v))
	}
}

func asIntLike(v gff.Value) int64 {
	switch v.Kind() {
	case gff.KindByte:
		return int64(v.AsByte())
	case gff.KindChar:
		return int64(v.AsChar())
	case gff.KindWord:
		return int64(v.AsWord())
	case gff.KindShort:
		return int64(v.AsShort())
	case gff.KindDword:
		return int64(v.AsDword())
	case gff.KindInt:
		return int64(v.AsInt())
	case gff.KindDword64:
		return int64(v.AsDword64())
	case gff.KindInt64:
		return v.AsInt64()
	default:
		return 0
	}
}

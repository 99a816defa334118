package gff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func TestRoundTripAllLeafKinds(t *testing.T) {
	root := NewStruct(0xFFFFFFFF)
	root.Set("AByte", Byte(255))
	root.Set("AChar", Char(-128))
	root.Set("AWord", Word(65535))
	root.Set("AShort", Short(-32768))
	root.Set("ADword", Dword(4294967295))
	root.Set("AInt", Int(-2147483648))
	root.Set("ADword64", Dword64(18446744073709551615))
	root.Set("AInt64", Int64(-9223372036854775808))
	root.Set("AFloat", Float(3.14159))
	root.Set("ADouble", Double(2.718281828459045))
	root.Set("AString", CExoString("Hello, World!"))

	ref, err := ResRef("nw_test01")
	require.NoError(t, err)
	root.Set("AResRef", ref)

	loc := NewLocString()
	loc.StrRef = -1
	loc.Strings[nwtypes.GenderedLanguage{Lang: nwtypes.English, Gender: nwtypes.Male}] = "Test."
	root.Set("ALocString", CExoLocString(loc))
	root.Set("AVoid", VoidValue([]byte{0xDE, 0xAD, 0xBE, 0xEF}))

	inner1 := NewStruct(1)
	inner1.Set("Depth", Int(1))
	inner2 := NewStruct(2)
	inner2.Set("Depth", Int(2))
	nested := NewStruct(3)
	nested.Set("Children", ListValue([]*Struct{inner1, inner2}))
	root.Set("AStruct", StructValue(nested))

	listItem1 := NewStruct(10)
	listItem1.Set("Index", Int(0))
	listItem2 := NewStruct(11)
	listItem2.Set("Index", Int(1))
	root.Set("AList", ListValue([]*Struct{listItem1, listItem2}))

	magic, err := nwtypes.NewFileMagic("TEST")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root, magic, nwtypes.CP1252))

	got, gotMagic, err := Read(&buf, nwtypes.CP1252)
	require.NoError(t, err)
	assert.Equal(t, magic, gotMagic)
	assert.True(t, root.Equal(got), "round-tripped struct should be field-set equal to the original")
}

func TestResRefRejectsOversizeName(t *testing.T) {
	_, err := ResRef("this-name-is-definitely-too-long")
	assert.Error(t, err)
}

func TestReadRejectsBadMagic(t *testing.T) {
	root := NewStruct(0)
	magic, _ := nwtypes.NewFileMagic("TEST")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root, magic, nwtypes.CP1252))

	raw := buf.Bytes()
	raw[0] = '!'
	_, _, err := Read(bytes.NewReader(raw), nwtypes.CP1252)
	assert.Error(t, err)
}

func TestReadRejectsBadVersion(t *testing.T) {
	root := NewStruct(0)
	magic, _ := nwtypes.NewFileMagic("TEST")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root, magic, nwtypes.CP1252))

	raw := buf.Bytes()
	raw[4] = 'X'
	_, _, err := Read(bytes.NewReader(raw), nwtypes.CP1252)
	assert.Error(t, err)
}

func TestStructEqualIgnoresFieldOrder(t *testing.T) {
	a := NewStruct(0)
	a.Set("X", Int(1))
	a.Set("Y", Int(2))

	b := NewStruct(0)
	b.Set("Y", Int(2))
	b.Set("X", Int(1))

	assert.True(t, a.Equal(b))
}

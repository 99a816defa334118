package ndb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwscript/langspec"
)

const sample = `FILE 0 add.nss

STRUCT 0 SUM_RESULT
FIELD int total

FUNCTION add 13 44 int
ARG int
ARG int

FUNCTION main 44 60 void

VAR a int 13 44
VAR b int 17 44

LINE 13 0 1
LINE 25 0 2
`

func TestReadParsesAllRecordKinds(t *testing.T) {
	n, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, n.Files, 1)
	assert.Equal(t, "add.nss", n.Files[0])

	require.Len(t, n.Structs, 1)
	assert.Equal(t, "SUM_RESULT", n.Structs[0].Label)
	require.Len(t, n.Structs[0].Fields, 1)
	assert.Equal(t, langspec.TypeInt, n.Structs[0].Fields[0].Type)

	st, ok := n.StructByID(StructRef{ID: 0})
	require.True(t, ok)
	assert.Equal(t, "SUM_RESULT", st.Label)

	fn, ok := n.FunctionByName("add")
	require.True(t, ok)
	assert.Equal(t, int32(13), fn.StartAddr)
	assert.Equal(t, int32(44), fn.EndAddr)
	assert.Len(t, fn.Args, 2)

	_, ok = n.FunctionByName("main")
	assert.True(t, ok)

	require.Len(t, n.Variables, 2)
	assert.Equal(t, "b", n.Variables[1].Name)

	line, ok := n.LineFor(20)
	require.True(t, ok)
	assert.Equal(t, 1, line.Number)

	line, ok = n.LineFor(30)
	require.True(t, ok)
	assert.Equal(t, 2, line.Number)
}

func TestReadRejectsUnknownTag(t *testing.T) {
	_, err := Read(strings.NewReader("BOGUS 1 2\n"))
	assert.Error(t, err)
}

package langspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
int TRUE = 1;
int FALSE = 0;
int NUM_INVENTORY_SLOTS = 119;

// Returns a random number between 0 and (nMaxInteger - 1), inclusive.
int Random(int nMaxInteger);

// Speaks sString on sChannel, defaulting to the caller.
void SpeakString(string sString, int nTalkVolume = 0);

void SetBodyBag(object oObject, int nBodyBag = 1);
`

func TestReadParsesConstantsAndFunctions(t *testing.T) {
	spec, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, spec.Constants, 3)
	assert.Equal(t, "NUM_INVENTORY_SLOTS", spec.Constants[2].Name)
	assert.Equal(t, int32(119), spec.Constants[2].Value.Int)

	require.Len(t, spec.Functions, 3)
	random := spec.Functions[0]
	assert.Equal(t, "Random", random.Name)
	assert.Equal(t, 0, random.ID)
	require.Len(t, random.Args, 1)
	assert.Equal(t, TypeInt, random.Args[0].Type)
	assert.Nil(t, random.Args[0].Default)
	assert.Equal(t, []string{"Returns a random number between 0 and (nMaxInteger - 1), inclusive."}, random.Doc)

	speak := spec.Functions[1]
	require.Len(t, speak.Args, 2)
	require.NotNil(t, speak.Args[1].Default)
	assert.Equal(t, int32(0), speak.Args[1].Default.Int)

	last := spec.Functions[2]
	assert.Equal(t, "SetBodyBag", last.Name)
	assert.Equal(t, TypeObject, last.Args[0].Type)
	assert.Equal(t, TypeInt, last.Args[1].Type)
}

func TestFunctionByName(t *testing.T) {
	spec, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	fn, ok := spec.FunctionByName("Random")
	require.True(t, ok)
	assert.Equal(t, 0, fn.ID)

	_, ok = spec.FunctionByName("NoSuchFunction")
	assert.False(t, ok)
}

func TestConstantDefaultIsDereferenced(t *testing.T) {
	src := `int TRUE = 1;
void AssignCommand(object oObject, int bPreserveOldThinkingState = TRUE);
`
	spec, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	fn, ok := spec.FunctionByName("AssignCommand")
	require.True(t, ok)
	require.NotNil(t, fn.Args[1].Default)
	assert.Equal(t, int32(1), fn.Args[1].Default.Int)
}

package nwtypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestypeTableIsBijective(t *testing.T) {
	seenExt := map[string]int{}
	for restype, ext := range restypeToExt {
		if other, dup := seenExt[ext]; dup {
			t.Fatalf("extension %q claimed by both restype %d and %d", ext, other, restype)
		}
		seenExt[ext] = restype

		gotExt, err := RestypeToExtension(restype)
		require.NoError(t, err)
		assert.Equal(t, ext, gotExt)

		gotRestype, err := ExtensionToRestype(ext)
		require.NoError(t, err)
		assert.Equal(t, restype, gotRestype)
	}
}

func TestRestypeTableHasApproximatelyEightyEntries(t *testing.T) {
	assert.Greater(t, len(restypeToExt), 70)
}

func TestIsValidResref(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"nw_chicken.utc", true},
		{strings.Repeat("a", 16) + ".utc", true},
		{strings.Repeat("a", 17) + ".utc", false},
		{"nested/path.utc", false},
		{`back\slash.utc`, false},
		{"two.dots.utc", false},
		{"noext", false},
		{".utc", false},
		{"file.xyz_unknown", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, IsValidResref(c.name), "resref %q", c.name)
	}
}

func TestCaseInsensitiveCanonicalResref(t *testing.T) {
	require.True(t, IsValidResref("NW_CHICKEN.UTC"))
	assert.Equal(t, CanonicalResref("NW_CHICKEN.UTC"), CanonicalResref("nw_chicken.utc"))
}

func TestSplitResref(t *testing.T) {
	name, ext, err := SplitResref("nw_chicken.utc")
	require.NoError(t, err)
	assert.Equal(t, "nw_chicken", name)
	assert.Equal(t, "utc", ext)

	_, _, err = SplitResref("bad/name.utc")
	assert.Error(t, err)
}

func TestFileMagicPadsAndValidates(t *testing.T) {
	m, err := NewFileMagic("KEY")
	require.NoError(t, err)
	assert.Equal(t, "KEY ", m.String())

	m2, err := NewFileMagic("NSYM")
	require.NoError(t, err)
	assert.Equal(t, "NSYM", m2.String())

	_, err = NewFileMagic("TOOLONG")
	assert.Error(t, err)

	_, err = NewFileMagic("ab!!")
	assert.Error(t, err)
}

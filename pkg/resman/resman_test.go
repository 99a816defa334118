package resman

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/res"
)

func TestPrecedenceFirstContainerWins(t *testing.T) {
	mem := res.NewInMemoryDict()
	require.NoError(t, mem.Set("a.txt", []byte("X")))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Y"), 0o644))
	localDir, err := res.Open(dir, false)
	require.NoError(t, err)

	rm := New(mem, localDir)
	data, ok, err := rm.Get("a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("X"), data)
}

func TestGetMissIsNotAnError(t *testing.T) {
	mem := res.NewInMemoryDict()
	rm := New(mem)
	_, ok, err := rm.Get("missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetTargetsFirstWritableContainer(t *testing.T) {
	mem := res.NewInMemoryDict()
	rm := New(mem)
	require.NoError(t, rm.Set("new.txt", []byte("hello")))

	data, ok, err := rm.Get("new.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
}

func TestCaseInsensitiveResolution(t *testing.T) {
	mem := res.NewInMemoryDict()
	require.NoError(t, mem.Set("A.txt", []byte("X")))
	rm := New(mem)

	lower, _, err := rm.Get("a.txt")
	require.NoError(t, err)
	upper, _, err := rm.Get("A.TXT")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

func TestCacheHitMatchesFirstLookup(t *testing.T) {
	mem := res.NewInMemoryDict()
	require.NoError(t, mem.Set("a.txt", []byte("X")))
	rm := New(mem)

	first, ok1, err1 := rm.Get("a.txt")
	second, ok2, err2 := rm.Get("a.txt")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestCacheHitMatchesFirstMiss(t *testing.T) {
	mem := res.NewInMemoryDict()
	rm := New(mem)

	_, ok1, err1 := rm.Get("missing.txt")
	_, ok2, err2 := rm.Get("missing.txt")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestInvalidateCacheForcesRescan(t *testing.T) {
	mem := res.NewInMemoryDict()
	rm := New(mem)

	_, ok, err := rm.Get("late.txt")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mem.Set("late.txt", []byte("now here")))
	rm.InvalidateCache()

	data, ok, err := rm.Get("late.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("now here"), data)
}

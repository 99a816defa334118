package erf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fileType, err := nwtypes.NewFileMagic("HAK ")
	require.NoError(t, err)

	w := NewWriter(fileType, nwtypes.CP1252)
	w.AddString(nwtypes.GenderedLanguage{Lang: nwtypes.English, Gender: nwtypes.Male}, "Test.")
	require.NoError(t, w.AddFile("test.txt", []byte("Hello, World!")))

	now := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, w.finalizeAt(&buf, now))

	r, err := Open(bytes.NewReader(buf.Bytes()), nwtypes.CP1252)
	require.NoError(t, err)

	assert.Equal(t, fileType, r.FileType)
	assert.Equal(t, now.Year(), r.BuildDate.Year)
	assert.Equal(t, now.YearDay(), r.BuildDate.Day)
	assert.Equal(t, "Test.", r.Strings[nwtypes.GenderedLanguage{Lang: nwtypes.English, Gender: nwtypes.Male}])

	data, err := r.ReadFile("test.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello, World!"), data)
}

func TestAddFileRejectsInvalidResref(t *testing.T) {
	fileType, _ := nwtypes.NewFileMagic("HAK ")
	w := NewWriter(fileType, nwtypes.CP1252)
	err := w.AddFile("bad/name.txt", []byte("x"))
	assert.Error(t, err)
}

func TestReadFileMissingReturnsNotFound(t *testing.T) {
	fileType, _ := nwtypes.NewFileMagic("HAK ")
	w := NewWriter(fileType, nwtypes.CP1252)
	var buf bytes.Buffer
	require.NoError(t, w.finalizeAt(&buf, time.Now()))

	r, err := Open(bytes.NewReader(buf.Bytes()), nwtypes.CP1252)
	require.NoError(t, err)
	_, err = r.ReadFile("missing.txt")
	assert.Error(t, err)
}

package tlk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func TestWriteReadRoundTrip(t *testing.T) {
	entries := []StringOrEntry{
		Text("BadStrref"),
		Text(""),
		Entry{Text: "Seagull", SoundResRef: "as_wi_seagull1", SoundLength: 1.5},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, nwtypes.English, nwtypes.CP1252))

	lang, got, err := Read(&buf, nwtypes.CP1252, 0)
	require.NoError(t, err)
	assert.Equal(t, nwtypes.English, lang)
	require.Len(t, got, 3)
	assert.Equal(t, "BadStrref", got[0].Text)
	assert.Equal(t, "", got[1].Text)
	assert.Equal(t, "Seagull", got[2].Text)
	assert.Equal(t, "as_wi_seagull1", got[2].SoundResRef)
	assert.InDelta(t, 1.5, got[2].SoundLength, 0.0001)
}

func TestReadRejectsTooManyEntries(t *testing.T) {
	entries := make([]StringOrEntry, 5)
	for i := range entries {
		entries[i] = Text("x")
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, nwtypes.English, nwtypes.CP1252))

	_, _, err := Read(&buf, nwtypes.CP1252, 4)
	assert.Error(t, err)
}

func TestWriteRejectsOversizeSoundResRef(t *testing.T) {
	entries := []StringOrEntry{
		Entry{Text: "x", SoundResRef: "this-sound-resref-is-too-long"},
	}
	var buf bytes.Buffer
	err := Write(&buf, entries, nwtypes.English, nwtypes.CP1252)
	assert.Error(t, err)
}

package nwsync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

func sha1Of(b byte) [sha1Size]byte {
	var s [sha1Size]byte
	for i := range s {
		s[i] = b
	}
	return s
}

func TestWriteIsStableAcrossRewrites(t *testing.T) {
	entries := []Entry{
		{SHA1: sha1Of(2), Size: 10, ResRef: "module"},
		{SHA1: sha1Of(1), Size: 20, ResRef: "area01"},
		{SHA1: sha1Of(1), Size: 20, ResRef: "area02"},
	}

	var buf1 bytes.Buffer
	require.NoError(t, Write(&buf1, entries, nwtypes.CP1252))

	reread, err := Read(bytes.NewReader(buf1.Bytes()), nwtypes.CP1252)
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, Write(&buf2, reread, nwtypes.CP1252))

	assert.Equal(t, buf1.Bytes(), buf2.Bytes(), "write must be a pure function of the entry set")
}

func TestRepositoryPath(t *testing.T) {
	e := Entry{SHA1: sha1Of(0xAB)}
	assert.Equal(t, "ab/ab/abababababababababababababababababababab", e.RepositoryPath())
}

func TestWriteRejectsOversizeResRef(t *testing.T) {
	entries := []Entry{{SHA1: sha1Of(1), Size: 1, ResRef: "this-resref-is-definitely-too-long"}}
	var buf bytes.Buffer
	err := Write(&buf, entries, nwtypes.CP1252)
	assert.Error(t, err)
}

func TestReadRejectsBadMagic(t *testing.T) {
	entries := []Entry{{SHA1: sha1Of(1), Size: 1, ResRef: "x"}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, nwtypes.CP1252))
	raw := buf.Bytes()
	raw[0] = 'X'
	_, err := Read(bytes.NewReader(raw), nwtypes.CP1252)
	assert.Error(t, err)
}

package ssf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	entries := NewUnsetTable()
	entries[SlotBattlecry1] = Entry{Resref: "c_cat_bat1", StrRef: 12345}
	entries[48] = Entry{Resref: "c_cat_last", StrRef: 999}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, numSlots)
	assert.Equal(t, Entry{Resref: "c_cat_bat1", StrRef: 12345}, got[SlotBattlecry1])
	assert.Equal(t, Entry{Resref: "c_cat_last", StrRef: 999}, got[48])
	assert.True(t, got[SlotBattlecry2].Unset())
}

func TestWriteRejectsWrongEntryCount(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Entry{{StrRef: 1}})
	assert.Error(t, err)
}

func TestWriteRejectsOversizeResref(t *testing.T) {
	entries := NewUnsetTable()
	entries[0].Resref = "this-resref-is-far-too-long-for-16-bytes"
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, entries))
}

func TestReadRejectsBadVersion(t *testing.T) {
	entries := NewUnsetTable()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries))
	raw := buf.Bytes()
	raw[4] = 'X'
	_, err := Read(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestNewUnsetTableHasFortyNineSlots(t *testing.T) {
	assert.Len(t, NewUnsetTable(), 49)
}

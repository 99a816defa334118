package nwlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCapturesEmittedRecords(t *testing.T) {
	l := New("resman")
	l.SetLevel(LevelVerbose)

	var rec Recorder
	rec.Attach(l)

	l.Infof("hit %s", "a.txt")
	l.Warnf("miss %s", "b.txt")

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "resman", records[0].Subsystem)
	assert.Equal(t, LevelInfo, records[0].Level)
	assert.Equal(t, "hit a.txt", records[0].Message)
	assert.Equal(t, LevelWarn, records[1].Level)
	assert.Equal(t, "miss b.txt", records[1].Message)
}

func TestLevelBelowFloorIsSuppressed(t *testing.T) {
	l := New("vm")
	l.SetLevel(LevelWarn)

	var rec Recorder
	rec.Attach(l)

	l.Debugf("ignored")
	l.Warnf("kept")

	records := rec.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}

func TestResetClearsRecords(t *testing.T) {
	l := New("gff")
	var rec Recorder
	rec.Attach(l)

	l.Infof("one")
	require.Len(t, rec.Records(), 1)
	rec.Reset()
	assert.Empty(t, rec.Records())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}

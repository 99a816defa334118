// Package ssf implements the Sound Set File codec: a fixed-size table
// mapping a closed set of creature sound-set slots to a resref and a
// talk-table StrRef.
//
// The original Python implementation's source tree carries no SSF reader
// (only its round-trip test fixture, tests/ssf/test_ssf.py, confirming a
// 49-entry table with a per-entry resref such as "c_cat_bat1"); the wire
// layout here follows the documented engine format: a fixed 40-byte
// reserved header region after the entry-table pointer, then one 20-byte
// record per slot (16-byte resref + 4-byte StrRef).
package ssf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
)

const (
	wireMagic      = "SSF "
	wireVersion    = "V1.1"
	headerReserved = 40
	entrySize      = 20
	resrefSize     = 16
)

// numSlots is the fixed entry count the engine reads, confirmed by the
// retrieval pack's own SSF fixture (tests/ssf/test_ssf.py: "assert
// len(entries) == 49").
const numSlots = 49

// Slot indexes the fixed, ordered set of sound-set entries the engine
// reads. Only a handful of slot purposes are confirmed by the pack (the
// battlecry trio, from the fixture's entries[1].resref == "c_cat_bat1");
// the rest are unnamed rather than guessed.
type Slot int

const (
	SlotBattlecry1 Slot = iota + 1
	SlotBattlecry2
	SlotBattlecry3
)

func (s Slot) String() string {
	switch s {
	case SlotBattlecry1:
		return "Battlecry1"
	case SlotBattlecry2:
		return "Battlecry2"
	case SlotBattlecry3:
		return "Battlecry3"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Entry is one slot's resref and StrRef. StrRef is 0xFFFFFFFF when unset.
type Entry struct {
	Resref string
	StrRef uint32
}

const unsetStrRef = 0xFFFFFFFF

// Unset reports whether the slot carries no string reference.
func (e Entry) Unset() bool { return e.StrRef == unsetStrRef }

// Read parses a SSF stream into its fixed-length, slot-indexed entry table.
func Read(r io.Reader) ([]Entry, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ssf: %w: %v", nwerr.ErrFormat, err)
	}
	br := binio.NewReader(bytes.NewReader(all))
	var magicRaw, verRaw [4]byte
	br.ReadRaw(magicRaw[:])
	br.ReadRaw(verRaw[:])
	entryCount := br.ReadUint32()
	offsetEntries := br.ReadUint32()
	br.ReadRaw(make([]byte, headerReserved))
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("ssf: %w: %v", nwerr.ErrFormat, err)
	}
	if string(magicRaw[:]) != wireMagic {
		return nil, fmt.Errorf("ssf: %w: %q", nwerr.ErrInvalidMagic, magicRaw)
	}
	if string(verRaw[:]) != wireVersion {
		return nil, fmt.Errorf("ssf: %w: %q", nwerr.ErrUnsupportedVersion, verRaw)
	}

	end := uint64(offsetEntries) + uint64(entryCount)*entrySize
	if end > uint64(len(all)) {
		return nil, fmt.Errorf("ssf: %w: entry table truncated", nwerr.ErrFormat)
	}
	table := all[offsetEntries:end]

	entries := make([]Entry, entryCount)
	for i := range entries {
		rec := table[i*entrySize : (i+1)*entrySize]
		rbr := binio.NewReader(bytes.NewReader(rec))
		var resrefRaw [resrefSize]byte
		rbr.ReadRaw(resrefRaw[:])
		strRef := rbr.ReadUint32()
		if err := rbr.Error(); err != nil {
			return nil, fmt.Errorf("ssf: %w: entry %d: %v", nwerr.ErrFormat, i, err)
		}
		entries[i] = Entry{Resref: string(trimNul(resrefRaw[:])), StrRef: strRef}
	}
	return entries, nil
}

// Write serializes the entry table, which must have exactly numSlots
// entries.
func Write(w io.Writer, entries []Entry) error {
	if len(entries) != numSlots {
		return fmt.Errorf("ssf: %w: expected %d entries, got %d", nwerr.ErrFormat, numSlots, len(entries))
	}

	bw := binio.NewWriter(w)
	bw.WriteRaw([]byte(wireMagic))
	bw.WriteRaw([]byte(wireVersion))
	bw.WriteUint32(uint32(len(entries)))
	bw.WriteUint32(resrefSize + headerReserved)
	bw.WriteRaw(make([]byte, headerReserved))
	for _, e := range entries {
		if len(e.Resref) > resrefSize {
			return fmt.Errorf("ssf: %w: resref %q longer than %d bytes", nwerr.ErrInvalidResref, e.Resref, resrefSize)
		}
		var resrefRaw [resrefSize]byte
		copy(resrefRaw[:], e.Resref)
		bw.WriteRaw(resrefRaw[:])
		bw.WriteUint32(e.StrRef)
	}
	return bw.Error()
}

func trimNul(b []byte) []byte {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		return b
	}
	return b[:n]
}

// NewUnsetTable returns a fresh entry table with every slot unset and no
// resref.
func NewUnsetTable() []Entry {
	out := make([]Entry, numSlots)
	for i := range out {
		out[i] = Entry{StrRef: unsetStrRef}
	}
	return out
}

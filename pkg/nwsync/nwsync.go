// Package nwsync implements the NWSYNC manifest codec: a content-addressed
// index mapping resrefs to SHA-1-named blobs, used to synchronize module
// content across a server and its connecting clients.
package nwsync

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

const (
	wireMagic   = "NSYM"
	wireVersion = uint32(3)
	sha1Size    = 20
)

// Entry is one flattened manifest row: a content-addressed blob plus the
// resref it is known by.
type Entry struct {
	SHA1   [sha1Size]byte
	Size   uint32
	ResRef string
}

// RepositoryPath is the two-level fan-out path under which the blob named
// by SHA1 is stored: aa/bb/aabbccdd....
func (e Entry) RepositoryPath() string {
	h := hex.EncodeToString(e.SHA1[:])
	return h[0:2] + "/" + h[2:4] + "/" + h
}

// Read parses a manifest stream into its flat entry list.
func Read(r io.Reader, cp nwtypes.CodePage) ([]Entry, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("nwsync: %w: %v", nwerr.ErrFormat, err)
	}

	br := binio.NewReader(bytes.NewReader(all))
	var magicRaw [4]byte
	br.ReadRaw(magicRaw[:])
	version := br.ReadUint32()
	entryCount := br.ReadUint32()
	mappingCount := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("nwsync: %w: %v", nwerr.ErrFormat, err)
	}
	if string(magicRaw[:]) != wireMagic {
		return nil, fmt.Errorf("nwsync: %w: %q", nwerr.ErrInvalidMagic, magicRaw)
	}
	if version != wireVersion {
		return nil, fmt.Errorf("nwsync: %w: %d", nwerr.ErrUnsupportedVersion, version)
	}

	type rawEntry struct {
		sha1   [sha1Size]byte
		size   uint32
		resref string
		hasRef bool
	}
	entries := make([]rawEntry, entryCount)
	for i := range entries {
		var sha1 [sha1Size]byte
		br.ReadRaw(sha1[:])
		size := br.ReadUint32()
		resrefRaw := br.ReadN(16)
		br.ReadUint16() // reserved
		if err := br.Error(); err != nil {
			return nil, fmt.Errorf("nwsync: %w: entry %d: %v", nwerr.ErrFormat, i, err)
		}
		trimmed := trimNul(resrefRaw)
		resref, err := codepage.Decode(trimmed, cp)
		if err != nil {
			return nil, fmt.Errorf("nwsync: %w", err)
		}
		entries[i] = rawEntry{sha1: sha1, size: size, resref: resref, hasRef: len(trimmed) > 0}
	}

	out := make([]Entry, 0, mappingCount)
	for i := uint32(0); i < mappingCount; i++ {
		entryIdx := br.ReadUint32()
		resrefRaw := br.ReadN(16)
		br.ReadUint16() // reserved
		if err := br.Error(); err != nil {
			return nil, fmt.Errorf("nwsync: %w: mapping %d: %v", nwerr.ErrFormat, i, err)
		}
		if int(entryIdx) >= len(entries) {
			return nil, fmt.Errorf("nwsync: %w: mapping %d references out-of-range entry %d", nwerr.ErrFormat, i, entryIdx)
		}
		resref, err := codepage.Decode(trimNul(resrefRaw), cp)
		if err != nil {
			return nil, fmt.Errorf("nwsync: %w", err)
		}
		e := entries[entryIdx]
		out = append(out, Entry{SHA1: e.sha1, Size: e.size, ResRef: resref})
	}
	// Entries whose own resref field is set carry no mapping row at all.
	for _, e := range entries {
		if e.hasRef {
			out = append(out, Entry{SHA1: e.sha1, Size: e.size, ResRef: e.resref})
		}
	}

	return out, nil
}

func trimNul(b []byte) []byte {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		return b
	}
	return b[:n]
}

// Write serializes entries as a version-3 manifest. Entries are grouped by
// SHA1 (size must agree across a group); entries are sorted by SHA1
// ascending, mappings by resref ascending. Duplicate-resref groups share one
// entry row; when a SHA1 group has exactly one resref, that resref is
// carried directly on the entry row and no mapping row is emitted for it.
func Write(w io.Writer, entries []Entry, cp nwtypes.CodePage) error {
	groups := map[[sha1Size]byte][]Entry{}
	var order [][sha1Size]byte
	for _, e := range entries {
		if len(e.ResRef) == 0 {
			return fmt.Errorf("nwsync: %w: entry has empty resref", nwerr.ErrInvalidResref)
		}
		encoded, err := codepage.Encode(e.ResRef, cp)
		if err != nil {
			return fmt.Errorf("nwsync: %w", err)
		}
		if len(encoded) > 16 {
			return fmt.Errorf("nwsync: %w: resref %q exceeds 16 bytes once encoded", nwerr.ErrInvalidResref, e.ResRef)
		}
		if _, ok := groups[e.SHA1]; !ok {
			order = append(order, e.SHA1)
		}
		groups[e.SHA1] = append(groups[e.SHA1], e)
	}
	sort.Slice(order, func(i, j int) bool { return bytes.Compare(order[i][:], order[j][:]) < 0 })

	type mapping struct {
		entryIdx uint32
		resref   string
	}
	var wireEntries []Entry
	var mappings []mapping
	for _, sha1 := range order {
		group := groups[sha1]
		sort.Slice(group, func(i, j int) bool { return group[i].ResRef < group[j].ResRef })

		entryIdx := uint32(len(wireEntries))
		if len(group) == 1 {
			wireEntries = append(wireEntries, group[0])
			continue
		}
		wireEntries = append(wireEntries, Entry{SHA1: sha1, Size: group[0].Size})
		for _, g := range group {
			mappings = append(mappings, mapping{entryIdx: entryIdx, resref: g.ResRef})
		}
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].resref < mappings[j].resref })

	bw := binio.NewWriter(w)
	bw.WriteRaw([]byte(wireMagic))
	bw.WriteUint32(wireVersion)
	bw.WriteUint32(uint32(len(wireEntries)))
	bw.WriteUint32(uint32(len(mappings)))
	for _, e := range wireEntries {
		bw.WriteRaw(e.SHA1[:])
		bw.WriteUint32(e.Size)
		var resrefBytes []byte
		if e.ResRef != "" {
			encoded, err := codepage.Encode(e.ResRef, cp)
			if err != nil {
				return fmt.Errorf("nwsync: %w", err)
			}
			resrefBytes = encoded
		}
		bw.WriteRaw(binio.FixedBytes(resrefBytes, 16))
		bw.WriteUint16(0)
	}
	for _, m := range mappings {
		encoded, err := codepage.Encode(m.resref, cp)
		if err != nil {
			return fmt.Errorf("nwsync: %w", err)
		}
		bw.WriteUint32(m.entryIdx)
		bw.WriteRaw(binio.FixedBytes(encoded, 16))
		bw.WriteUint16(0)
	}
	return bw.Error()
}

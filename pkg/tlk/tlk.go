// Package tlk implements the Talk Table codec: an indexed, localized string
// table referenced by StrRef throughout GFF and script data.
package tlk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

const (
	wireMagic      = "TLK "
	wireVersion    = "V3.0"
	flagTextPresent = 0x1
	// DefaultMaxEntries is the entry-count ceiling enforced by Read when the
	// caller passes 0 for maxEntries.
	DefaultMaxEntries = 0x7FFFF
)

// Entry is one string-table row: its text, and optional sound metadata.
type Entry struct {
	Text        string
	SoundResRef string
	SoundLength float32
}

// Read parses a TLK stream, enforcing entry_count <= maxEntries (0 selects
// DefaultMaxEntries).
func Read(r io.Reader, cp nwtypes.CodePage, maxEntries uint32) (nwtypes.Language, []Entry, error) {
	if maxEntries == 0 {
		maxEntries = DefaultMaxEntries
	}
	all, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, fmt.Errorf("tlk: %w: %v", nwerr.ErrFormat, err)
	}

	br := binio.NewReader(bytes.NewReader(all))
	var magicRaw, verRaw [4]byte
	br.ReadRaw(magicRaw[:])
	br.ReadRaw(verRaw[:])
	languageID := br.ReadUint32()
	entryCount := br.ReadUint32()
	offsetStrings := br.ReadUint32()
	if err := br.Error(); err != nil {
		return 0, nil, fmt.Errorf("tlk: %w: %v", nwerr.ErrFormat, err)
	}
	if string(magicRaw[:]) != wireMagic {
		return 0, nil, fmt.Errorf("tlk: %w: %q", nwerr.ErrInvalidMagic, magicRaw)
	}
	if string(verRaw[:]) != wireVersion {
		return 0, nil, fmt.Errorf("tlk: %w: %q", nwerr.ErrUnsupportedVersion, verRaw)
	}
	if entryCount > maxEntries {
		return 0, nil, fmt.Errorf("tlk: %w: entry_count %d exceeds limit %d", nwerr.ErrFormat, entryCount, maxEntries)
	}

	const recordSize = 40
	recordsStart := uint32(20)
	recordsEnd := uint64(recordsStart) + uint64(entryCount)*recordSize
	if recordsEnd > uint64(len(all)) {
		return 0, nil, fmt.Errorf("tlk: %w: record table truncated", nwerr.ErrFormat)
	}
	records := all[recordsStart:recordsEnd]

	entries := make([]Entry, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		rec := records[i*recordSize : (i+1)*recordSize]
		rbr := binio.NewReader(bytes.NewReader(rec))
		flags := rbr.ReadUint32()
		soundResRaw := rbr.ReadN(16)
		rbr.ReadUint32() // volume variance, unused by readers
		rbr.ReadUint32() // pitch variance, unused by readers
		offset := rbr.ReadUint32()
		size := rbr.ReadUint32()
		soundLength := rbr.ReadFloat32()
		if err := rbr.Error(); err != nil {
			return 0, nil, fmt.Errorf("tlk: %w: record %d: %v", nwerr.ErrFormat, i, err)
		}

		var text string
		if flags&flagTextPresent != 0 {
			start := uint64(offsetStrings) + uint64(offset)
			end := start + uint64(size)
			if end > uint64(len(all)) {
				return 0, nil, fmt.Errorf("tlk: %w: string %d out of range", nwerr.ErrFormat, i)
			}
			decoded, err := codepage.Decode(all[start:end], cp)
			if err != nil {
				return 0, nil, fmt.Errorf("tlk: %w", err)
			}
			text = decoded
		}

		soundResRef, err := codepage.Decode(trimNul(soundResRaw), cp)
		if err != nil {
			return 0, nil, fmt.Errorf("tlk: %w", err)
		}

		entries[i] = Entry{Text: text, SoundResRef: soundResRef, SoundLength: soundLength}
	}

	return nwtypes.Language(languageID), entries, nil
}

func trimNul(b []byte) []byte {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		return b
	}
	return b[:n]
}

// StringOrEntry accepts either a plain string (a text-only entry) or an
// Entry, matching the reference writer's permissive input list.
type StringOrEntry interface{ toEntry() Entry }

type plainText string

func (p plainText) toEntry() Entry { return Entry{Text: string(p)} }

func (e Entry) toEntry() Entry { return e }

// Text wraps a plain string as a text-only entry for Write.
func Text(s string) StringOrEntry { return plainText(s) }

// Write serializes entries for the given language. Sound resrefs longer
// than 16 bytes once codepage-encoded are rejected.
func Write(w io.Writer, entries []StringOrEntry, language nwtypes.Language, cp nwtypes.CodePage) error {
	var stringsBuf bytes.Buffer
	recordsBuf := make([]byte, 0, len(entries)*40)

	for _, se := range entries {
		e := se.toEntry()
		var flags uint32
		var offset, size uint32
		if e.Text != "" {
			flags |= flagTextPresent
			encoded, err := codepage.Encode(e.Text, cp)
			if err != nil {
				return fmt.Errorf("tlk: %w", err)
			}
			offset = uint32(stringsBuf.Len())
			size = uint32(len(encoded))
			stringsBuf.Write(encoded)
		}

		soundBytes, err := codepage.Encode(e.SoundResRef, cp)
		if err != nil {
			return fmt.Errorf("tlk: %w", err)
		}
		if len(soundBytes) > 16 {
			return fmt.Errorf("tlk: %w: sound resref %q exceeds 16 bytes", nwerr.ErrInvalidResref, e.SoundResRef)
		}

		rec := encodeRecord(flags, soundBytes, offset, size, e.SoundLength)
		recordsBuf = append(recordsBuf, rec...)
	}

	bw := binio.NewWriter(w)
	bw.WriteRaw([]byte(wireMagic))
	bw.WriteRaw([]byte(wireVersion))
	bw.WriteUint32(uint32(language))
	bw.WriteUint32(uint32(len(entries)))
	bw.WriteUint32(20 + uint32(len(recordsBuf)))
	bw.WriteRaw(recordsBuf)
	bw.WriteRaw(stringsBuf.Bytes())
	return bw.Error()
}

func encodeRecord(flags uint32, soundRes []byte, offset, size uint32, soundLength float32) []byte {
	var buf bytes.Buffer
	w := binio.NewWriter(&buf)
	w.WriteUint32(flags)
	w.WriteRaw(binio.FixedBytes(soundRes, 16))
	w.WriteUint32(0) // volume variance
	w.WriteUint32(0) // pitch variance
	w.WriteUint32(offset)
	w.WriteUint32(size)
	w.WriteFloat32(soundLength)
	return buf.Bytes()
}

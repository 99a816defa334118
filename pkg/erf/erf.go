// Package erf implements the Encapsulated Resource File codec: a packed
// archive carrying localized description strings plus a flat table of named
// binary entries (modules, haks, portrait packs, and similar bundles).
package erf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

const (
	wireVersionV1_0 = "V1.0"
	wireVersionV1_1 = "V1.1"
	wireVersionE1_0 = "E1.0"
	headerReserved  = 116
)

// Entry describes one archived resource's location within the payload
// region, independent of which key-table layout stored it.
type Entry struct {
	Name    string // canonical resref.ext, lower-case
	ResType int
	ID      uint32
	Offset  uint32
	Size    uint32
}

// BuildDate is the (1900+year, day-of-year) pair the header stores, decoded
// into a calendar date.
type BuildDate struct {
	Year int
	Day  int // 1-based day of year
}

func (b BuildDate) Time() time.Time {
	return time.Date(b.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, b.Day-1)
}

func buildDateFromTime(t time.Time) BuildDate {
	return BuildDate{Year: t.Year(), Day: t.YearDay()}
}

// Reader parses an ERF archive fully into memory: the localized description
// table and a name-indexed entry map, with lazy payload reads via ReadFile.
type Reader struct {
	FileType  nwtypes.FileMagic
	Version   string
	BuildDate BuildDate
	Strings   map[nwtypes.GenderedLanguage]string

	entries map[string]Entry
	order   []string
	src     io.ReaderAt
	cp      nwtypes.CodePage
}

// Open parses an ERF archive from src, which must support random access for
// later ReadFile calls.
func Open(src io.ReaderAt, cp nwtypes.CodePage) (*Reader, error) {
	var hdr [156]byte
	n, err := src.ReadAt(hdr[:], 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}
	if n < 156 {
		return nil, fmt.Errorf("erf: %w: header truncated", nwerr.ErrFormat)
	}

	br := binio.NewReader(bytes.NewReader(hdr[:]))
	var magicRaw, versionRaw [4]byte
	br.ReadRaw(magicRaw[:])
	br.ReadRaw(versionRaw[:])
	locstrCount := br.ReadUint32()
	locstrTotalBytes := br.ReadUint32()
	entryCount := br.ReadUint32()
	offsetLocstr := br.ReadUint32()
	offsetKeys := br.ReadUint32()
	offsetRes := br.ReadUint32()
	buildYear := br.ReadUint32()
	buildDay := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}

	magic, err := nwtypes.NewFileMagic(trimSpace(magicRaw[:]))
	if err != nil {
		return nil, fmt.Errorf("erf: %w: %v", nwerr.ErrInvalidMagic, err)
	}
	version := string(versionRaw[:])
	resrefLen := 16
	switch version {
	case wireVersionV1_0, wireVersionE1_0:
		resrefLen = 16
	case wireVersionV1_1:
		resrefLen = 32
	default:
		return nil, fmt.Errorf("erf: %w: %q", nwerr.ErrUnsupportedVersion, version)
	}

	r := &Reader{
		FileType:  magic,
		Version:   version,
		BuildDate: BuildDate{Year: 1900 + int(buildYear), Day: int(buildDay) + 1},
		Strings:   map[nwtypes.GenderedLanguage]string{},
		entries:   map[string]Entry{},
		src:       src,
		cp:        cp,
	}

	if err := r.readLocStrings(offsetLocstr, locstrCount, locstrTotalBytes); err != nil {
		return nil, err
	}
	if err := r.readEntries(offsetKeys, offsetRes, entryCount, resrefLen); err != nil {
		return nil, err
	}
	return r, nil
}

func trimSpace(b []byte) string {
	s := string(b)
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

func (r *Reader) readLocStrings(offset, count, totalBytes uint32) error {
	if count == 0 {
		return nil
	}
	buf := make([]byte, totalBytes)
	if _, err := r.src.ReadAt(buf, int64(offset)); err != nil {
		return fmt.Errorf("erf: %w: localized strings: %v", nwerr.ErrFormat, err)
	}
	br := binio.NewReader(bytes.NewReader(buf))
	for i := uint32(0); i < count; i++ {
		id := br.ReadUint32()
		size := br.ReadUint32()
		text := br.ReadN(int(size))
		if err := br.Error(); err != nil {
			return fmt.Errorf("erf: %w: localized string %d: %v", nwerr.ErrFormat, i, err)
		}
		s, err := codepage.Decode(text, r.cp)
		if err != nil {
			return fmt.Errorf("erf: %w", err)
		}
		r.Strings[nwtypes.GenderedLanguageFromID(id)] = s
	}
	return nil
}

func (r *Reader) readEntries(offsetKeys, offsetRes, count uint32, resrefLen int) error {
	keyRecordSize := resrefLen + 4 + 4
	keyBuf := make([]byte, int(count)*keyRecordSize)
	if count > 0 {
		if _, err := r.src.ReadAt(keyBuf, int64(offsetKeys)); err != nil {
			return fmt.Errorf("erf: %w: key table: %v", nwerr.ErrFormat, err)
		}
	}
	resBuf := make([]byte, int(count)*8)
	if count > 0 {
		if _, err := r.src.ReadAt(resBuf, int64(offsetRes)); err != nil {
			return fmt.Errorf("erf: %w: resource table: %v", nwerr.ErrFormat, err)
		}
	}

	kr := binio.NewReader(bytes.NewReader(keyBuf))
	type keyRec struct {
		resref  string
		restype uint16
		id      uint32
	}
	keys := make([]keyRec, count)
	for i := range keys {
		raw := kr.ReadN(resrefLen)
		restype := kr.ReadUint16()
		kr.ReadUint16() // unused/padding
		id := kr.ReadUint32()
		if err := kr.Error(); err != nil {
			return fmt.Errorf("erf: %w: key record %d: %v", nwerr.ErrFormat, i, err)
		}
		name, err := codepage.Decode(trimNulBytes(raw), r.cp)
		if err != nil {
			return fmt.Errorf("erf: %w", err)
		}
		keys[i] = keyRec{resref: name, restype: restype, id: id}
	}

	rr := binio.NewReader(bytes.NewReader(resBuf))
	for i, k := range keys {
		off := rr.ReadUint32()
		size := rr.ReadUint32()
		if err := rr.Error(); err != nil {
			return fmt.Errorf("erf: %w: resource record %d: %v", nwerr.ErrFormat, i, err)
		}
		ext, err := nwtypes.RestypeToExtension(int(k.restype))
		if err != nil {
			return fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
		}
		name := nwtypes.CanonicalResref(k.resref + "." + ext)
		e := Entry{Name: name, ResType: int(k.restype), ID: k.id, Offset: off, Size: size}
		r.entries[name] = e
		r.order = append(r.order, name)
	}
	return nil
}

func trimNulBytes(b []byte) []byte {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		return b
	}
	return b[:n]
}

// Filenames returns every entry name, in archive order.
func (r *Reader) Filenames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FileMap returns the full name-to-Entry mapping.
func (r *Reader) FileMap() map[string]Entry {
	out := make(map[string]Entry, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// ReadFile returns the payload bytes for a canonical resref.ext name.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	e, ok := r.entries[nwtypes.CanonicalResref(name)]
	if !ok {
		return nil, fmt.Errorf("erf: %w: %q", nwerr.ErrNotFound, name)
	}
	buf := make([]byte, e.Size)
	if _, err := r.src.ReadAt(buf, int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}
	return buf, nil
}

// Writer accumulates localized strings and named entries, then serializes
// them on Finalize in insertion order.
type Writer struct {
	fileType nwtypes.FileMagic
	cp       nwtypes.CodePage
	strings  map[nwtypes.GenderedLanguage]string
	names    []string
	payloads map[string][]byte
}

// NewWriter returns a Writer for the given archive file-type magic.
func NewWriter(fileType nwtypes.FileMagic, cp nwtypes.CodePage) *Writer {
	return &Writer{
		fileType: fileType,
		cp:       cp,
		strings:  map[nwtypes.GenderedLanguage]string{},
		payloads: map[string][]byte{},
	}
}

// AddString sets the localized description text for a (language, gender)
// pair.
func (w *Writer) AddString(gl nwtypes.GenderedLanguage, text string) {
	w.strings[gl] = text
}

// AddFile adds or replaces a named entry. name must be a valid resref.ext.
func (w *Writer) AddFile(name string, data []byte) error {
	if !nwtypes.IsValidResref(name) {
		return fmt.Errorf("erf: %w: %q", nwerr.ErrInvalidResref, name)
	}
	canonical := nwtypes.CanonicalResref(name)
	if _, exists := w.payloads[canonical]; !exists {
		w.names = append(w.names, canonical)
	}
	w.payloads[canonical] = data
	return nil
}

// Finalize writes the complete archive to sink. The build date recorded in
// the header is the current date.
func (w *Writer) Finalize(sink io.Writer) error {
	return w.finalizeAt(sink, time.Now())
}

func (w *Writer) finalizeAt(sink io.Writer, now time.Time) error {
	const headerSize = 156
	locstrIDs := make([]uint32, 0, len(w.strings))
	for gl := range w.strings {
		locstrIDs = append(locstrIDs, gl.ID())
	}
	sort.Slice(locstrIDs, func(i, j int) bool { return locstrIDs[i] < locstrIDs[j] })

	var locstrBuf bytes.Buffer
	lw := binio.NewWriter(&locstrBuf)
	for _, id := range locstrIDs {
		gl := nwtypes.GenderedLanguageFromID(id)
		text, err := codepage.Encode(w.strings[gl], w.cp)
		if err != nil {
			return fmt.Errorf("erf: %w", err)
		}
		lw.WriteUint32(id)
		lw.WriteUint32(uint32(len(text)))
		lw.WriteRaw(text)
	}
	if err := lw.Error(); err != nil {
		return fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}

	keySize := 24
	keysOff := uint32(headerSize) + uint32(locstrBuf.Len())
	resOff := keysOff + uint32(len(w.names)*keySize)
	payloadOff := resOff + uint32(len(w.names)*8)

	var keyBuf, resBuf, payloadBuf bytes.Buffer
	kw := binio.NewWriter(&keyBuf)
	rw := binio.NewWriter(&resBuf)
	cursor := payloadOff
	for _, name := range w.names {
		base, ext, err := nwtypes.SplitResref(name)
		if err != nil {
			return fmt.Errorf("erf: %w: %v", nwerr.ErrInvalidResref, err)
		}
		restype, err := nwtypes.ExtensionToRestype(ext)
		if err != nil {
			return fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
		}
		encName, err := codepage.Encode(base, w.cp)
		if err != nil {
			return fmt.Errorf("erf: %w", err)
		}
		kw.WriteRaw(binio.FixedBytes(encName, 16))
		kw.WriteUint16(uint16(restype))
		kw.WriteUint16(0)
		kw.WriteUint32(0) // resource id, filled in when multiple archives share a pool; unused here

		data := w.payloads[name]
		rw.WriteUint32(cursor)
		rw.WriteUint32(uint32(len(data)))
		payloadBuf.Write(data)
		cursor += uint32(len(data))
	}
	if err := kw.Error(); err != nil {
		return fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}
	if err := rw.Error(); err != nil {
		return fmt.Errorf("erf: %w: %v", nwerr.ErrFormat, err)
	}

	bd := buildDateFromTime(now)

	bw := binio.NewWriter(sink)
	bw.WriteRaw([]byte(w.fileType.String()))
	bw.WriteRaw([]byte(wireVersionV1_0))
	bw.WriteUint32(uint32(len(locstrIDs)))
	bw.WriteUint32(uint32(locstrBuf.Len()))
	bw.WriteUint32(uint32(len(w.names)))
	bw.WriteUint32(uint32(headerSize))
	bw.WriteUint32(keysOff)
	bw.WriteUint32(resOff)
	bw.WriteUint32(uint32(bd.Year - 1900))
	bw.WriteUint32(uint32(bd.Day - 1))
	bw.WriteRaw(make([]byte, headerReserved))
	bw.WriteRaw(locstrBuf.Bytes())
	bw.WriteRaw(keyBuf.Bytes())
	bw.WriteRaw(resBuf.Bytes())
	bw.WriteRaw(payloadBuf.Bytes())
	return bw.Error()
}

package gff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nwnkit/nwngo/internal/binio"
	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

const wireVersion = "V3.2"

type wireStruct struct {
	typ           uint32
	dataOrOffset  uint32
	fieldCount    uint32
}

type wireField struct {
	typ         uint32
	labelIndex  uint32
	dataOrOffset uint32
}

// Read parses a GFF stream into its root Struct and the file-type magic
// named in the header, decoding all text fields under cp.
func Read(r io.Reader, cp nwtypes.CodePage) (root *Struct, magic nwtypes.FileMagic, err error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, magic, fmt.Errorf("gff: %w: %v", nwerr.ErrFormat, err)
	}
	return parse(all, cp)
}

func parse(all []byte, cp nwtypes.CodePage) (*Struct, nwtypes.FileMagic, error) {
	var magic nwtypes.FileMagic
	br := binio.NewReader(bytes.NewReader(all))

	var magicRaw [4]byte
	br.ReadRaw(magicRaw[:])
	var versionRaw [4]byte
	br.ReadRaw(versionRaw[:])
	structOff := br.ReadUint32()
	structCount := br.ReadUint32()
	fieldOff := br.ReadUint32()
	fieldCount := br.ReadUint32()
	labelOff := br.ReadUint32()
	labelCount := br.ReadUint32()
	fieldDataOff := br.ReadUint32()
	fieldDataCount := br.ReadUint32()
	fieldIndicesOff := br.ReadUint32()
	fieldIndicesCount := br.ReadUint32()
	listIndicesOff := br.ReadUint32()
	listIndicesCount := br.ReadUint32()
	if err := br.Error(); err != nil {
		return nil, magic, fmt.Errorf("gff: %w: %v", nwerr.ErrFormat, err)
	}

	m, err := nwtypes.NewFileMagic(trimTrailingSpace(magicRaw[:]))
	if err != nil {
		return nil, magic, fmt.Errorf("gff: %w: %v", nwerr.ErrInvalidMagic, err)
	}
	magic = m
	if string(versionRaw[:]) != wireVersion {
		return nil, magic, fmt.Errorf("gff: %w: %q", nwerr.ErrUnsupportedVersion, versionRaw)
	}

	structs, err := readStructs(all, structOff, structCount)
	if err != nil {
		return nil, magic, err
	}
	fields, err := readFields(all, fieldOff, fieldCount)
	if err != nil {
		return nil, magic, err
	}
	labels, err := readLabels(all, labelOff, labelCount)
	if err != nil {
		return nil, magic, err
	}
	fieldData, err := sliceAt(all, fieldDataOff, fieldDataCount)
	if err != nil {
		return nil, magic, err
	}
	fieldIndices, err := readU32Array(all, fieldIndicesOff, fieldIndicesCount/4)
	if err != nil {
		return nil, magic, err
	}
	listIndices, err := sliceAt(all, listIndicesOff, listIndicesCount)
	if err != nil {
		return nil, magic, err
	}

	d := &decoder{
		structs: structs, fields: fields, labels: labels,
		fieldData: fieldData, fieldIndices: fieldIndices, listIndices: listIndices,
		cp: cp, open: map[uint32]bool{},
	}
	root, err := d.decodeStruct(0)
	if err != nil {
		return nil, magic, err
	}
	return root, magic, nil
}

func trimTrailingSpace(b []byte) string {
	s := string(b)
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

func sliceAt(all []byte, off, size uint32) ([]byte, error) {
	end := uint64(off) + uint64(size)
	if end > uint64(len(all)) {
		return nil, fmt.Errorf("gff: %w: offset %d size %d exceeds stream length %d", nwerr.ErrFormat, off, size, len(all))
	}
	return all[off:end], nil
}

func readU32Array(all []byte, off, count uint32) ([]uint32, error) {
	buf, err := sliceAt(all, off, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

func readStructs(all []byte, off, count uint32) ([]wireStruct, error) {
	buf, err := sliceAt(all, off, count*12)
	if err != nil {
		return nil, err
	}
	out := make([]wireStruct, count)
	for i := range out {
		b := buf[i*12:]
		out[i] = wireStruct{
			typ:          binary.LittleEndian.Uint32(b[0:4]),
			dataOrOffset: binary.LittleEndian.Uint32(b[4:8]),
			fieldCount:   binary.LittleEndian.Uint32(b[8:12]),
		}
	}
	return out, nil
}

func readFields(all []byte, off, count uint32) ([]wireField, error) {
	buf, err := sliceAt(all, off, count*12)
	if err != nil {
		return nil, err
	}
	out := make([]wireField, count)
	for i := range out {
		b := buf[i*12:]
		out[i] = wireField{
			typ:          binary.LittleEndian.Uint32(b[0:4]),
			labelIndex:   binary.LittleEndian.Uint32(b[4:8]),
			dataOrOffset: binary.LittleEndian.Uint32(b[8:12]),
		}
	}
	return out, nil
}

func readLabels(all []byte, off, count uint32) ([]string, error) {
	buf, err := sliceAt(all, off, count*16)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		raw := buf[i*16 : i*16+16]
		n := bytes.IndexByte(raw, 0)
		if n < 0 {
			n = 16
		}
		for _, c := range raw[:n] {
			if c < 0x20 || c > 0x7e {
				return nil, fmt.Errorf("gff: %w: label contains non-ASCII byte", nwerr.ErrFormat)
			}
		}
		out[i] = string(raw[:n])
	}
	return out, nil
}

type decoder struct {
	structs      []wireStruct
	fields       []wireField
	labels       []string
	fieldData    []byte
	fieldIndices []uint32
	listIndices  []byte
	cp           nwtypes.CodePage
	open         map[uint32]bool
}

func (d *decoder) decodeStruct(idx uint32) (*Struct, error) {
	if int(idx) >= len(d.structs) {
		return nil, fmt.Errorf("gff: %w: struct index %d out of range", nwerr.ErrFormat, idx)
	}
	if d.open[idx] {
		return nil, fmt.Errorf("gff: %w: cycle detected at struct %d", nwerr.ErrFormat, idx)
	}
	d.open[idx] = true
	defer delete(d.open, idx)

	ws := d.structs[idx]
	s := NewStruct(ws.typ)

	var fieldIdxs []uint32
	switch ws.fieldCount {
	case 0:
		// no fields
	case 1:
		fieldIdxs = []uint32{ws.dataOrOffset}
	default:
		start := ws.dataOrOffset / 4
		if uint64(start)+uint64(ws.fieldCount) > uint64(len(d.fieldIndices)) {
			return nil, fmt.Errorf("gff: %w: field-indices range out of bounds for struct %d", nwerr.ErrFormat, idx)
		}
		fieldIdxs = d.fieldIndices[start : start+ws.fieldCount]
	}

	for _, fi := range fieldIdxs {
		label, v, err := d.decodeField(fi)
		if err != nil {
			return nil, err
		}
		s.Set(label, v)
	}
	return s, nil
}

func (d *decoder) decodeField(fi uint32) (string, Value, error) {
	if int(fi) >= len(d.fields) {
		return "", Value{}, fmt.Errorf("gff: %w: field index %d out of range", nwerr.ErrFormat, fi)
	}
	wf := d.fields[fi]
	if int(wf.labelIndex) >= len(d.labels) {
		return "", Value{}, fmt.Errorf("gff: %w: label index %d out of range", nwerr.ErrFormat, wf.labelIndex)
	}
	label := d.labels[wf.labelIndex]
	kind := Kind(wf.typ)

	switch kind {
	case KindByte:
		return label, Byte(uint8(wf.dataOrOffset)), nil
	case KindChar:
		return label, Char(int8(wf.dataOrOffset)), nil
	case KindWord:
		return label, Word(uint16(wf.dataOrOffset)), nil
	case KindShort:
		return label, Short(int16(wf.dataOrOffset)), nil
	case KindDword:
		return label, Dword(wf.dataOrOffset), nil
	case KindInt:
		return label, Int(int32(wf.dataOrOffset)), nil
	case KindFloat:
		return label, Value{kind: KindFloat, f32: math.Float32frombits(wf.dataOrOffset)}, nil
	case KindDword64:
		b, err := d.dataAt(wf.dataOrOffset, 8)
		if err != nil {
			return "", Value{}, err
		}
		return label, Dword64(binary.LittleEndian.Uint64(b)), nil
	case KindInt64:
		b, err := d.dataAt(wf.dataOrOffset, 8)
		if err != nil {
			return "", Value{}, err
		}
		return label, Int64(int64(binary.LittleEndian.Uint64(b))), nil
	case KindDouble:
		b, err := d.dataAt(wf.dataOrOffset, 8)
		if err != nil {
			return "", Value{}, err
		}
		return label, Double(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case KindCExoString:
		str, err := d.decodeCExoString(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		return label, CExoString(str), nil
	case KindResRef:
		str, err := d.decodeResRef(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		v, err := ResRef(str)
		if err != nil {
			return "", Value{}, err
		}
		return label, v, nil
	case KindCExoLocString:
		loc, err := d.decodeLocString(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		return label, CExoLocString(loc), nil
	case KindVoid:
		b, err := d.decodeVoid(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		return label, VoidValue(b), nil
	case KindStruct:
		st, err := d.decodeStruct(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		return label, StructValue(st), nil
	case KindList:
		list, err := d.decodeList(wf.dataOrOffset)
		if err != nil {
			return "", Value{}, err
		}
		return label, ListValue(list), nil
	default:
		return "", Value{}, fmt.Errorf("gff: %w: field kind %d", nwerr.ErrFormat, wf.typ)
	}
}

func (d *decoder) dataAt(off uint32, n int) ([]byte, error) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(d.fieldData)) {
		return nil, fmt.Errorf("gff: %w: field-data offset %d+%d out of range", nwerr.ErrFormat, off, n)
	}
	return d.fieldData[off:end], nil
}

func (d *decoder) decodeCExoString(off uint32) (string, error) {
	lenBuf, err := d.dataAt(off, 4)
	if err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	b, err := d.dataAt(off+4, int(n))
	if err != nil {
		return "", err
	}
	s, err := codepage.Decode(b, d.cp)
	if err != nil {
		return "", fmt.Errorf("gff: %w", err)
	}
	return s, nil
}

func (d *decoder) decodeResRef(off uint32) (string, error) {
	lenBuf, err := d.dataAt(off, 1)
	if err != nil {
		return "", err
	}
	n := int(lenBuf[0])
	b, err := d.dataAt(off+1, n)
	if err != nil {
		return "", err
	}
	s, err := codepage.Decode(b, d.cp)
	if err != nil {
		return "", fmt.Errorf("gff: %w", err)
	}
	return s, nil
}

func (d *decoder) decodeVoid(off uint32) ([]byte, error) {
	lenBuf, err := d.dataAt(off, 4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	b, err := d.dataAt(off+4, int(n))
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (d *decoder) decodeLocString(off uint32) (LocString, error) {
	loc := NewLocString()
	totalSizeBuf, err := d.dataAt(off, 4)
	if err != nil {
		return loc, err
	}
	_ = binary.LittleEndian.Uint32(totalSizeBuf)

	strRefBuf, err := d.dataAt(off+4, 4)
	if err != nil {
		return loc, err
	}
	loc.StrRef = int32(binary.LittleEndian.Uint32(strRefBuf))

	countBuf, err := d.dataAt(off+8, 4)
	if err != nil {
		return loc, err
	}
	count := binary.LittleEndian.Uint32(countBuf)

	cursor := off + 12
	for i := uint32(0); i < count; i++ {
		idBuf, err := d.dataAt(cursor, 4)
		if err != nil {
			return loc, err
		}
		id := binary.LittleEndian.Uint32(idBuf)
		lenBuf, err := d.dataAt(cursor+4, 4)
		if err != nil {
			return loc, err
		}
		n := binary.LittleEndian.Uint32(lenBuf)
		strBuf, err := d.dataAt(cursor+8, int(n))
		if err != nil {
			return loc, err
		}
		s, err := codepage.Decode(strBuf, d.cp)
		if err != nil {
			return loc, fmt.Errorf("gff: %w", err)
		}
		loc.Strings[nwtypes.GenderedLanguageFromID(id)] = s
		cursor += 8 + n
	}
	return loc, nil
}

func (d *decoder) decodeList(off uint32) ([]*Struct, error) {
	if uint64(off)+4 > uint64(len(d.listIndices)) {
		return nil, fmt.Errorf("gff: %w: list-indices offset %d out of range", nwerr.ErrFormat, off)
	}
	count := binary.LittleEndian.Uint32(d.listIndices[off : off+4])
	cursor := off + 4
	out := make([]*Struct, count)
	for i := uint32(0); i < count; i++ {
		if uint64(cursor)+4 > uint64(len(d.listIndices)) {
			return nil, fmt.Errorf("gff: %w: list-indices entry out of range", nwerr.ErrFormat)
		}
		idx := binary.LittleEndian.Uint32(d.listIndices[cursor : cursor+4])
		st, err := d.decodeStruct(idx)
		if err != nil {
			return nil, err
		}
		out[i] = st
		cursor += 4
	}
	return out, nil
}

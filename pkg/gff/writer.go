package gff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/nwnkit/nwngo/internal/nwerr"
	"github.com/nwnkit/nwngo/pkg/codepage"
	"github.com/nwnkit/nwngo/pkg/nwtypes"
)

// Write serializes root under the given file-type magic, encoding text
// fields under cp. Labels are de-duplicated across the whole file; fields
// are emitted in each struct's insertion order.
func Write(w io.Writer, root *Struct, magic nwtypes.FileMagic, cp nwtypes.CodePage) error {
	e := &encoder{
		labelIndex: map[string]uint32{},
		cp:         cp,
	}
	if _, err := e.encodeStruct(root); err != nil {
		return err
	}

	const headerSize = 56
	structBytes := uint32(len(e.structs)) * 12
	fieldBytes := uint32(len(e.fields)) * 12
	labelBytes := uint32(len(e.labels)) * 16
	fieldDataBytes := uint32(e.fieldData.Len())
	fieldIndicesBytes := uint32(len(e.fieldIndices)) * 4
	listIndicesBytes := uint32(e.listIndices.Len())

	structOff := uint32(headerSize)
	fieldOff := structOff + structBytes
	labelOff := fieldOff + fieldBytes
	fieldDataOff := labelOff + labelBytes
	fieldIndicesOff := fieldDataOff + fieldDataBytes
	listIndicesOff := fieldIndicesOff + fieldIndicesBytes

	var buf bytes.Buffer
	buf.WriteString(magic.String())
	buf.WriteString(wireVersion)
	writeU32Pair(&buf, structOff, uint32(len(e.structs)))
	writeU32Pair(&buf, fieldOff, uint32(len(e.fields)))
	writeU32Pair(&buf, labelOff, uint32(len(e.labels)))
	writeU32Pair(&buf, fieldDataOff, fieldDataBytes)
	writeU32Pair(&buf, fieldIndicesOff, fieldIndicesBytes)
	writeU32Pair(&buf, listIndicesOff, listIndicesBytes)

	for _, s := range e.structs {
		writeU32(&buf, s.typ)
		writeU32(&buf, s.dataOrOffset)
		writeU32(&buf, s.fieldCount)
	}
	for _, f := range e.fields {
		writeU32(&buf, f.typ)
		writeU32(&buf, f.labelIndex)
		writeU32(&buf, f.dataOrOffset)
	}
	for _, l := range e.labels {
		var block [16]byte
		copy(block[:], l)
		buf.Write(block[:])
	}
	buf.Write(e.fieldData.Bytes())
	for _, idx := range e.fieldIndices {
		writeU32(&buf, idx)
	}
	buf.Write(e.listIndices.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU32Pair(buf *bytes.Buffer, a, b uint32) {
	writeU32(buf, a)
	writeU32(buf, b)
}

type encoder struct {
	structs      []wireStruct
	fields       []wireField
	labels       []string
	labelIndex   map[string]uint32
	fieldData    bytes.Buffer
	fieldIndices []uint32
	listIndices  bytes.Buffer
	cp           nwtypes.CodePage
}

func (e *encoder) internLabel(label string) (uint32, error) {
	if len(label) > 16 {
		return 0, fmt.Errorf("gff: %w: label %q longer than 16 bytes", nwerr.ErrFormat, label)
	}
	if i, ok := e.labelIndex[label]; ok {
		return i, nil
	}
	i := uint32(len(e.labels))
	e.labels = append(e.labels, label)
	e.labelIndex[label] = i
	return i, nil
}

func (e *encoder) encodeStruct(s *Struct) (uint32, error) {
	idx := uint32(len(e.structs))
	e.structs = append(e.structs, wireStruct{})

	fieldIdxs := make([]uint32, 0, s.Len())
	for _, f := range s.Fields() {
		fi, err := e.encodeField(f.Label, f.Value)
		if err != nil {
			return 0, err
		}
		fieldIdxs = append(fieldIdxs, fi)
	}

	var dataOrOffset uint32
	switch len(fieldIdxs) {
	case 0:
		dataOrOffset = 0
	case 1:
		dataOrOffset = fieldIdxs[0]
	default:
		dataOrOffset = uint32(len(e.fieldIndices)) * 4
		e.fieldIndices = append(e.fieldIndices, fieldIdxs...)
	}

	e.structs[idx] = wireStruct{typ: s.ID, dataOrOffset: dataOrOffset, fieldCount: uint32(len(fieldIdxs))}
	return idx, nil
}

func (e *encoder) encodeField(label string, v Value) (uint32, error) {
	li, err := e.internLabel(label)
	if err != nil {
		return 0, err
	}

	var dataOrOffset uint32
	switch v.Kind() {
	case KindByte:
		dataOrOffset = uint32(v.AsByte())
	case KindChar:
		dataOrOffset = uint32(uint8(v.AsChar()))
	case KindWord:
		dataOrOffset = uint32(v.AsWord())
	case KindShort:
		dataOrOffset = uint32(uint16(v.AsShort()))
	case KindDword:
		dataOrOffset = v.AsDword()
	case KindInt:
		dataOrOffset = uint32(v.AsInt())
	case KindFloat:
		dataOrOffset = math.Float32bits(v.AsFloat())
	case KindDword64:
		dataOrOffset = e.appendFieldData8(v.AsDword64())
	case KindInt64:
		dataOrOffset = e.appendFieldData8(uint64(v.AsInt64()))
	case KindDouble:
		dataOrOffset = e.appendFieldData8(math.Float64bits(v.AsDouble()))
	case KindCExoString:
		off, err := e.appendCExoString(v.AsString())
		if err != nil {
			return 0, err
		}
		dataOrOffset = off
	case KindResRef:
		off, err := e.appendResRef(v.AsResRef())
		if err != nil {
			return 0, err
		}
		dataOrOffset = off
	case KindCExoLocString:
		off, err := e.appendLocString(v.AsLocString())
		if err != nil {
			return 0, err
		}
		dataOrOffset = off
	case KindVoid:
		dataOrOffset = e.appendVoid(v.AsVoid())
	case KindStruct:
		si, err := e.encodeStruct(v.AsStruct())
		if err != nil {
			return 0, err
		}
		dataOrOffset = si
	case KindList:
		off, err := e.appendList(v.AsList())
		if err != nil {
			return 0, err
		}
		dataOrOffset = off
	default:
		return 0, fmt.Errorf("gff: %w: cannot write field kind %v", nwerr.ErrFormat, v.Kind())
	}

	e.fields = append(e.fields, wireField{typ: uint32(v.Kind()), labelIndex: li, dataOrOffset: dataOrOffset})
	return uint32(len(e.fields) - 1), nil
}

func (e *encoder) appendFieldData8(v uint64) uint32 {
	off := uint32(e.fieldData.Len())
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.fieldData.Write(b[:])
	return off
}

func (e *encoder) appendCExoString(s string) (uint32, error) {
	b, err := codepage.Encode(s, e.cp)
	if err != nil {
		return 0, fmt.Errorf("gff: %w", err)
	}
	off := uint32(e.fieldData.Len())
	writeU32(&e.fieldData, uint32(len(b)))
	e.fieldData.Write(b)
	return off, nil
}

func (e *encoder) appendResRef(s string) (uint32, error) {
	b, err := codepage.Encode(s, e.cp)
	if err != nil {
		return 0, fmt.Errorf("gff: %w", err)
	}
	if len(b) > 16 {
		return 0, fmt.Errorf("gff: %w: resref %q exceeds 16 bytes once encoded", nwerr.ErrInvalidResref, s)
	}
	off := uint32(e.fieldData.Len())
	e.fieldData.WriteByte(byte(len(b)))
	e.fieldData.Write(b)
	return off, nil
}

func (e *encoder) appendVoid(b []byte) uint32 {
	off := uint32(e.fieldData.Len())
	writeU32(&e.fieldData, uint32(len(b)))
	e.fieldData.Write(b)
	return off
}

func (e *encoder) appendLocString(loc LocString) (uint32, error) {
	off := uint32(e.fieldData.Len())

	var body bytes.Buffer
	writeU32(&body, uint32(loc.StrRef))
	writeU32(&body, uint32(len(loc.Strings)))
	for gl, s := range loc.Strings {
		b, err := codepage.Encode(s, e.cp)
		if err != nil {
			return 0, fmt.Errorf("gff: %w", err)
		}
		writeU32(&body, gl.ID())
		writeU32(&body, uint32(len(b)))
		body.Write(b)
	}

	writeU32(&e.fieldData, uint32(body.Len()))
	e.fieldData.Write(body.Bytes())
	return off, nil
}

func (e *encoder) appendList(items []*Struct) (uint32, error) {
	off := uint32(e.listIndices.Len())
	writeU32(&e.listIndices, uint32(len(items)))
	for _, st := range items {
		idx, err := e.encodeStruct(st)
		if err != nil {
			return 0, err
		}
		writeU32(&e.listIndices, idx)
	}
	return off, nil
}

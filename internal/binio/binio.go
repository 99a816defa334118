// Package binio provides sticky-error binary readers and writers for the
// little-endian container formats (GFF, ERF, KEY/BIF, TLK, NWSYNC) and the
// big-endian bytecode stream (NCS).
//
// The error-accumulating style mirrors github.com/calmh/xdr: every Read/Write
// method checks a stored error before doing anything, and callers check
// Error() once at the end of a sequence of calls instead of after every call.
package binio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrTooLarge is returned when a length-prefixed field exceeds a caller
// supplied sanity limit.
var ErrTooLarge = errors.New("binio: element size exceeds limit")

// Reader reads little-endian or big-endian primitives from an io.Reader,
// accumulating the first error encountered.
type Reader struct {
	r     io.Reader
	err   error
	order binary.ByteOrder
	buf   [8]byte
}

// NewReader returns a little-endian Reader, the byte order used by every
// format in this module except the NCS bytecode stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, order: binary.LittleEndian}
}

// NewReaderOrder returns a Reader using the given byte order.
func NewReaderOrder(r io.Reader, order binary.ByteOrder) *Reader {
	return &Reader{r: r, order: order}
}

func (r *Reader) Error() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// ReadRaw reads exactly len(dst) bytes.
func (r *Reader) ReadRaw(dst []byte) {
	if r.err != nil {
		return
	}
	_, err := io.ReadFull(r.r, dst)
	if err != nil {
		r.fail(err)
	}
}

// ReadN reads and returns exactly n bytes.
func (r *Reader) ReadN(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := make([]byte, n)
	r.ReadRaw(buf)
	if r.err != nil {
		return nil
	}
	return buf
}

// ReadNMax reads n bytes, failing with ErrTooLarge if n exceeds max (when
// max > 0).
func (r *Reader) ReadNMax(n, max int) []byte {
	if max > 0 && n > max {
		r.fail(ErrTooLarge)
		return nil
	}
	return r.ReadN(n)
}

func (r *Reader) ReadUint8() uint8 {
	if r.err != nil {
		return 0
	}
	r.ReadRaw(r.buf[:1])
	return r.buf[0]
}

func (r *Reader) ReadInt8() int8 { return int8(r.ReadUint8()) }

func (r *Reader) ReadUint16() uint16 {
	if r.err != nil {
		return 0
	}
	r.ReadRaw(r.buf[:2])
	if r.err != nil {
		return 0
	}
	return r.order.Uint16(r.buf[:2])
}

func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }

func (r *Reader) ReadUint32() uint32 {
	if r.err != nil {
		return 0
	}
	r.ReadRaw(r.buf[:4])
	if r.err != nil {
		return 0
	}
	return r.order.Uint32(r.buf[:4])
}

func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

func (r *Reader) ReadUint64() uint64 {
	if r.err != nil {
		return 0
	}
	r.ReadRaw(r.buf[:8])
	if r.err != nil {
		return 0
	}
	return r.order.Uint64(r.buf[:8])
}

func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// Writer writes little-endian or big-endian primitives to an io.Writer,
// accumulating the first error encountered.
type Writer struct {
	w     io.Writer
	err   error
	tot   int
	order binary.ByteOrder
	buf   [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, order: binary.LittleEndian}
}

func NewWriterOrder(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

func (w *Writer) Error() error { return w.err }

// Tot returns the number of bytes successfully written so far.
func (w *Writer) Tot() int { return w.tot }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) WriteRaw(bs []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(bs)
	w.tot += n
	if err != nil {
		w.fail(err)
	}
}

func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf[0] = v
	w.WriteRaw(w.buf[:1])
}

func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.order.PutUint16(w.buf[:2], v)
	w.WriteRaw(w.buf[:2])
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.order.PutUint32(w.buf[:4], v)
	w.WriteRaw(w.buf[:4])
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.order.PutUint64(w.buf[:8], v)
	w.WriteRaw(w.buf[:8])
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// FixedBytes right-pads (or truncates, which callers should avoid) a byte
// slice to exactly n bytes with zero bytes, the convention used by resref
// and magic fields throughout the formats in this module.
func FixedBytes(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when the input ends before a complete field.
var ErrTruncated = errors.New("truncated input")

// Writer accumulates the binary encoding. All varints are unsigned LEB128
// (little-endian, 7 bits per byte, high-bit continuation); byte strings are
// varint length followed by raw bytes.
type Writer struct {
	buf []byte
}

// Byte appends a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Uvarint appends v as a LEB128 varint.
func (w *Writer) Uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// Bytes appends b as a length-prefixed byte string.
func (w *Writer) Bytes(b []byte) {
	w.Uvarint(uint64(len(b)))
	w.Raw(b)
}

// OID appends the raw hash bytes of o.
func (w *Writer) OID(o OID) error {
	raw, err := o.Raw()
	if err != nil {
		return err
	}
	w.Raw(raw)
	return nil
}

// Output returns the accumulated encoding.
func (w *Writer) Output() []byte {
	return w.buf
}

// Reader decodes the binary encoding from an in-memory buffer.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrTruncated
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// Raw reads exactly n bytes.
func (r *Reader) Raw(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Uvarint reads a LEB128 varint.
func (r *Reader) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		if n == 0 {
			return 0, ErrTruncated
		}
		return 0, fmt.Errorf("varint overflow at offset %d", r.off)
	}
	r.off += n
	return v, nil
}

// Bytes reads a length-prefixed byte string.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ErrTruncated
	}
	return r.Raw(int(n))
}

// OID reads a raw hash of the given width.
func (r *Reader) OID(size int) (OID, error) {
	raw, err := r.Raw(size)
	if err != nil {
		return "", err
	}
	return OIDFromRaw(raw), nil
}

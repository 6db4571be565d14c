// Package bitreader is a small fixed-width binary cursor over an in-memory
// buffer, grounded on the teacher's wasm/internal/binary.Reader but
// specialised to this VM's little-endian fixed-width fields (no LEB128:
// the binary format here uses plain u8/u16/u32 fields throughout).
package bitreader

import "fmt"

// Reader tracks a byte cursor over data and reports its own offset on
// failure so the caller can build a vmerr.Fault with useful detail.
type Reader struct {
	data []byte
	pos  int
}

// New wraps data starting at offset 0.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Seek repositions the cursor.
func (r *Reader) Seek(pos int) {
	r.pos = pos
}

// Position returns the current byte offset.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ErrShort is returned (wrapped) when a read runs past the end of data.
var ErrShort = fmt.Errorf("unexpected end of buffer")

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShort, n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

// U8 reads one unsigned byte.
func (r *Reader) U8() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// U16 reads a little-endian uint16 (low byte first, per spec §9 Q2).
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := uint16(r.data[r.pos]) | uint16(r.data[r.pos+1])<<8
	r.pos += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := uint32(r.data[r.pos]) | uint32(r.data[r.pos+1])<<8 |
		uint32(r.data[r.pos+2])<<16 | uint32(r.data[r.pos+3])<<24
	r.pos += 4
	return v, nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Name reads a 1-byte length prefix followed by that many ASCII bytes,
// the length-prefixed-no-terminator convention used throughout the
// binary format (class/field/method names).
func (r *Reader) Name() (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

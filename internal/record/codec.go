package record

import (
	"encoding/binary"
	"fmt"

	"raffle-escrow/internal/address"
)

type writer struct {
	buf []byte
}

func (w *writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) optionU32(v *uint32) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u32(*v)
}

// reader keeps the first error and turns every later read into a no-op.
type reader struct {
	buf    []byte
	offset int
	err    error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.offset < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTooShort, n, r.offset, len(r.buf))
		return nil
	}
	b := r.buf[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) address() address.Address {
	var a address.Address
	copy(a[:], r.take(len(a)))
	return a
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) boolean() bool {
	v := r.u8()
	if r.err == nil && v > 1 {
		r.err = fmt.Errorf("%w: %d at offset %d", ErrInvalidBool, v, r.offset-1)
	}
	return v == 1
}

func (r *reader) optionU32() *uint32 {
	switch tag := r.u8(); {
	case r.err != nil:
		return nil
	case tag == 0:
		return nil
	case tag == 1:
		v := r.u32()
		return &v
	default:
		r.err = fmt.Errorf("%w: %d at offset %d", ErrInvalidOptionTag, tag, r.offset-1)
		return nil
	}
}

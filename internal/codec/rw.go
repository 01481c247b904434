package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// reader walks buf sequentially, returning an error the moment a read would
// run past the end of the buffer. This is what makes Verify/Decode safe
// against truncated or adversarially short input.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos)
	}
	return nil
}

func (r *reader) skip(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint8() (uint8, error) {
	b, err := r.skip(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.skip(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.skip(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.skip(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) float64() (float64, error) {
	b, err := r.skip(8)
	if err != nil {
		return 0, err
	}
	return float64FromBits(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) bool() (bool, error) {
	b, err := r.uint8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *reader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	b, err := r.skip(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// slabHeader reads a (count, blobLength) pair and returns count. The blob
// length is read past but not checked here; individual element decoders
// consume the blob's bytes afterward element by element, bounds-checking
// each read.
func (r *reader) slabHeader() (int, error) {
	n, err := r.uint32()
	if err != nil {
		return 0, err
	}
	if _, err := r.uint32(); err != nil { // blob length, unused by Decode directly
		return 0, err
	}
	return int(n), nil
}

// writer accumulates an encoded shard. Unlike reader it never fails: every
// value passed to it is already a valid in-memory Go value.
type writer struct {
	buf *bytes.Buffer
}

func (w *writer) uint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) float64(v float64) {
	w.uint64(float64Bits(v))
}

func (w *writer) bool(v bool) {
	if v {
		w.uint8(1)
	} else {
		w.uint8(0)
	}
}

func (w *writer) string(s string) {
	w.uint32(uint32(len(s)))
	w.buf.WriteString(s)
}

// slab writes a (count, blobLength) header followed by the bytes fn
// appends, backfilling blobLength once fn has run.
func (w *writer) slab(count int, fn func(w *writer)) {
	w.uint32(uint32(count))
	lenOffset := w.buf.Len()
	w.uint32(0) // placeholder, patched below
	start := w.buf.Len()
	fn(w)
	written := w.buf.Len() - start
	out := w.buf.Bytes()
	binary.LittleEndian.PutUint32(out[lenOffset:lenOffset+4], uint32(written))
}

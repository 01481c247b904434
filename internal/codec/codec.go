// Package codec implements the on-disk wire format for a single shard: a
// length-prefixed, tagged binary encoding with a separate verification pass
// so a caller can reject a truncated or corrupt shard file before trying to
// decode it field by field.
//
// The format is hand-rolled over encoding/binary rather than a
// schema-compiled serializer (see DESIGN.md): the original implementation's
// on-disk format is FlatBuffers, and nothing in the retrieval pack carries an
// equivalent Go dependency, so this package reproduces the same
// "length-prefixed tagged slabs" shape the pack's own segment formats use.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jward/symindex/internal/model"
)

// magic identifies a symindex shard file. version lets Verify reject a
// shard written by an incompatible future or past encoder outright, rather
// than failing deep inside field decoding.
const (
	magic   uint32 = 0x53594d58 // "SYMX"
	version uint16 = 1
)

// MalformedBuffer is returned by Verify or Decode when buf is not a valid
// encoded shard: truncated, wrong magic/version, or internally inconsistent
// length prefixes.
type MalformedBuffer struct {
	Reason string
}

func (e *MalformedBuffer) Error() string {
	return fmt.Sprintf("malformed shard buffer: %s", e.Reason)
}

func malformed(format string, args ...any) error {
	return &MalformedBuffer{Reason: fmt.Sprintf(format, args...)}
}

// IDToBytes encodes id as an 8-byte little-endian array, matching the
// layout the original implementation's GetIDFromArray shift-accumulate loop
// reads (most significant byte last).
func IDToBytes(id model.SymbolID) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return b
}

// IDFromBytes is the inverse of IDToBytes.
func IDFromBytes(b [8]byte) model.SymbolID {
	return model.SymbolID(binary.LittleEndian.Uint64(b[:]))
}

// Verify performs a single bounds-checking pass over buf, confirming the
// magic, the version, the header strings' length prefixes, and that each
// slab's declared blob length fits in buf, without looking inside the
// slabs' elements or materializing any Go values. Decode still re-checks bounds as it goes (a
// caller skipping Verify gets the same safety, just without a dedicated
// up-front pass), but Verify lets a caller reject a bad shard file cheaply
// before committing to a full decode.
func Verify(buf []byte) error {
	r := &reader{buf: buf}
	m, err := r.uint32()
	if err != nil {
		return malformed("truncated magic: %v", err)
	}
	if m != magic {
		return malformed("bad magic %08x", m)
	}
	v, err := r.uint16()
	if err != nil {
		return malformed("truncated version: %v", err)
	}
	if v != version {
		return malformed("unsupported version %d", v)
	}
	if _, err := r.string(); err != nil {
		return malformed("pkg name: %v", err)
	}
	if _, err := r.string(); err != nil {
		return malformed("hash code: %v", err)
	}
	for _, slab := range []string{"symbols", "refs", "relations", "extends", "cross-symbols"} {
		n, err := r.uint32()
		if err != nil {
			return malformed("%s count: %v", slab, err)
		}
		blobLen, err := r.uint32()
		if err != nil {
			return malformed("%s blob length: %v", slab, err)
		}
		if _, err := r.skip(int(blobLen)); err != nil {
			return malformed("%s blob: %v", slab, err)
		}
		_ = n
	}
	if r.pos != len(r.buf) {
		return malformed("trailing garbage: %d unread bytes", len(r.buf)-r.pos)
	}
	return nil
}

// Encode serializes a Shard into the on-disk format. Encode never fails:
// all fields are plain Go values with no invalid states that would require
// rejecting the input.
func Encode(s *model.Shard) []byte {
	var buf bytes.Buffer
	w := &writer{buf: &buf}
	w.uint32(magic)
	w.uint16(version)
	w.string(s.PkgName)
	w.string(s.HashCode)

	w.slab(len(s.Symbols), func(w *writer) {
		for _, sym := range s.Symbols {
			encodeSymbol(w, &sym)
		}
	})
	w.slab(len(s.Refs), func(w *writer) {
		for _, re := range s.Refs {
			encodeRefEntry(w, &re)
		}
	})
	w.slab(len(s.Relations), func(w *writer) {
		for _, rel := range s.Relations {
			encodeRelation(w, &rel)
		}
	})
	w.slab(len(s.Extends), func(w *writer) {
		for _, ex := range s.Extends {
			encodeExtendEntry(w, &ex)
		}
	})
	w.slab(len(s.CrossSymbols), func(w *writer) {
		for _, cs := range s.CrossSymbols {
			encodeCrossSymbol(w, &cs)
		}
	})
	return buf.Bytes()
}

// Decode is the inverse of Encode. Callers that have not already run
// Verify should still check the returned error; Decode performs the same
// bounds checks inline and returns a *MalformedBuffer on failure.
func Decode(buf []byte) (*model.Shard, error) {
	r := &reader{buf: buf}
	m, err := r.uint32()
	if err != nil || m != magic {
		return nil, malformed("bad or missing magic")
	}
	v, err := r.uint16()
	if err != nil || v != version {
		return nil, malformed("bad or missing version")
	}
	pkgName, err := r.string()
	if err != nil {
		return nil, malformed("pkg name: %v", err)
	}
	hashCode, err := r.string()
	if err != nil {
		return nil, malformed("hash code: %v", err)
	}

	s := &model.Shard{PkgName: pkgName, HashCode: hashCode}

	n, err := r.slabHeader()
	if err != nil {
		return nil, malformed("symbols header: %v", err)
	}
	s.Symbols = make([]model.Symbol, n)
	for i := range s.Symbols {
		if err := decodeSymbol(r, &s.Symbols[i]); err != nil {
			return nil, malformed("symbol %d: %v", i, err)
		}
	}

	n, err = r.slabHeader()
	if err != nil {
		return nil, malformed("refs header: %v", err)
	}
	s.Refs = make([]model.RefEntry, n)
	for i := range s.Refs {
		if err := decodeRefEntry(r, &s.Refs[i]); err != nil {
			return nil, malformed("ref %d: %v", i, err)
		}
	}

	n, err = r.slabHeader()
	if err != nil {
		return nil, malformed("relations header: %v", err)
	}
	s.Relations = make([]model.Relation, n)
	for i := range s.Relations {
		if err := decodeRelation(r, &s.Relations[i]); err != nil {
			return nil, malformed("relation %d: %v", i, err)
		}
	}

	n, err = r.slabHeader()
	if err != nil {
		return nil, malformed("extends header: %v", err)
	}
	s.Extends = make([]model.ExtendEntry, n)
	for i := range s.Extends {
		if err := decodeExtendEntry(r, &s.Extends[i]); err != nil {
			return nil, malformed("extend %d: %v", i, err)
		}
	}

	n, err = r.slabHeader()
	if err != nil {
		return nil, malformed("cross-symbols header: %v", err)
	}
	s.CrossSymbols = make([]model.CrossSymbol, n)
	for i := range s.CrossSymbols {
		if err := decodeCrossSymbol(r, &s.CrossSymbols[i]); err != nil {
			return nil, malformed("cross-symbol %d: %v", i, err)
		}
	}

	if r.pos != len(r.buf) {
		return nil, malformed("trailing garbage: %d unread bytes", len(r.buf)-r.pos)
	}
	return s, nil
}

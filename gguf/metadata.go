package gguf

import "encoding/binary"

// Key is one parsed metadata entry: its name and the raw bytes of its
// value, positioned by NextKey within the session's mapping.
type Key struct {
	Name  string
	Type  ValueType
	Value []byte

	arrayElemType ValueType
	arrayLen      uint64
}

// IsArray reports whether the key's value is an array, and if so its
// element type and length.
func (k Key) IsArray() (elemType ValueType, length uint64, ok bool) {
	if k.Type != ValueArray {
		return 0, 0, false
	}
	return k.arrayElemType, k.arrayLen, true
}

// Walk invokes visit for every scalar in the key's value: once, for a
// plain scalar or string; bracketed by ArrayStart/ArrayEnd markers and
// once per element, for an array. visit may be nil to simply measure
// the value without observing it.
func (k Key) Walk(visit Visitor) {
	walk(k.Value, 0, k.Type, 0, 0, visit)
}

// NextKey parses the next metadata key/value pair and advances the
// session's cursor past it. It returns (Key{}, false, nil) once every
// key the header promised has been consumed.
//
// general.alignment is special-cased exactly as gguf_get_key does in
// the original: a uint32 value updates the session's alignment so that
// later data-offset computation (Tensor cursor, NextTensor) uses it.
// Keys are otherwise opaque to this package — no other semantic
// validation is performed, matching spec.md's scope.
func (s *Session) NextKey() (Key, bool, error) {
	if s.leftKV == 0 {
		return Key{}, false, nil
	}
	if s.dataOff != 0 {
		return Key{}, false, newErr(KindPrecondition, s.path, "metadata walk already closed by a tensor read", nil)
	}

	off := s.off
	if off+8 > uint64(len(s.data)) {
		return Key{}, false, newErr(KindInvalid, s.path, "truncated key name length", nil)
	}
	nameLen := binary.LittleEndian.Uint64(s.data[off:])
	off += 8
	if off+nameLen > uint64(len(s.data)) {
		return Key{}, false, newErr(KindInvalid, s.path, "truncated key name", nil)
	}
	name := string(s.data[off : off+nameLen])
	off += nameLen

	if off+4 > uint64(len(s.data)) {
		return Key{}, false, newErr(KindInvalid, s.path, "truncated value type", nil)
	}
	typ := ValueType(binary.LittleEndian.Uint32(s.data[off:]))
	off += 4

	valStart := off
	var elemType ValueType
	var arrLen uint64
	if typ == ValueArray {
		if off+12 > uint64(len(s.data)) {
			return Key{}, false, newErr(KindInvalid, s.path, "truncated array header", nil)
		}
		elemType = ValueType(binary.LittleEndian.Uint32(s.data[off:]))
		arrLen = binary.LittleEndian.Uint64(s.data[off+4:])
	}

	end := walk(s.data, off, typ, 0, 0, nil)
	if end > uint64(len(s.data)) {
		return Key{}, false, newErr(KindInvalid, s.path, "truncated value", nil)
	}

	key := Key{Name: name, Type: typ, Value: s.data[valStart:end], arrayElemType: elemType, arrayLen: arrLen}

	if name == "general.alignment" && typ == ValueUint32 && len(key.Value) >= 4 {
		if align := binary.LittleEndian.Uint32(key.Value); align > 0 {
			s.alignment = uint64(align)
		}
	}

	s.off = end
	s.leftKV--
	return key, true, nil
}

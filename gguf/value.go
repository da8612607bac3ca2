package gguf

import "encoding/binary"

// ValueType tags a metadata value's wire encoding, per spec.md §3/§6.
type ValueType uint32

const (
	ValueUint8 ValueType = iota
	ValueInt8
	ValueUint16
	ValueInt16
	ValueUint32
	ValueInt32
	ValueFloat32
	ValueBool
	ValueString
	ValueArray
	ValueUint64
	ValueInt64
	ValueFloat64

	// valueArrayStart and valueArrayEnd are synthetic markers passed to a
	// Visitor around an array's elements; they never appear on disk.
	valueArrayStart ValueType = 0xfffffffe
	valueArrayEnd   ValueType = 0xffffffff
)

var valueTypeNames = map[ValueType]string{
	ValueUint8:   "uint8",
	ValueInt8:    "int8",
	ValueUint16:  "uint16",
	ValueInt16:   "int16",
	ValueUint32:  "uint32",
	ValueInt32:   "int32",
	ValueFloat32: "float32",
	ValueBool:    "bool",
	ValueString:  "string",
	ValueArray:   "array",
	ValueUint64:  "uint64",
	ValueInt64:   "int64",
	ValueFloat64: "float64",
}

// ValueTypeName returns the display name for a value type id, or
// "unknown" if it isn't one of the thirteen scalar/array/string ids.
func ValueTypeName(t ValueType) string {
	if n, ok := valueTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// scalarLen returns the on-disk length in bytes of a scalar or string
// value of type t found at val (needed to know the string's length);
// it returns 0 for ValueArray, whose length can't be known without
// walking it.
func scalarLen(t ValueType, val []byte) uint64 {
	switch t {
	case ValueBool, ValueUint8, ValueInt8:
		return 1
	case ValueUint16, ValueInt16:
		return 2
	case ValueUint32, ValueInt32, ValueFloat32:
		return 4
	case ValueUint64, ValueInt64, ValueFloat64:
		return 8
	case ValueString:
		return 8 + binary.LittleEndian.Uint64(val)
	default:
		return 0
	}
}

// Visitor observes a value (or an array element) during a walk. typ is
// the scalar type actually being visited (the array's element type, for
// elements), or valueArrayStart/valueArrayEnd around an array. val
// points at the raw on-disk bytes of the scalar (nil for the
// start/end markers). arrayIndex is the 1-based position within an
// enclosing array (0 outside of one); arrayLen is the enclosing array's
// length (0 outside of one, or the array's own length for the
// start/end markers).
type Visitor func(typ ValueType, val []byte, arrayIndex, arrayLen uint64)

// ArrayStart and ArrayEnd let a Visitor recognize the synthetic markers
// walk emits around an array's elements.
const (
	ArrayStart = valueArrayStart
	ArrayEnd   = valueArrayEnd
)

// walk consumes one value of type typ starting at data[off:], invoking
// visit for the value (or, for arrays, for the synthetic start/end
// markers and each element in turn). It returns the offset just past the
// value. visit may be nil, in which case the value is only skipped —
// this is how NextKey steps past a value to find where the next key
// begins.
func walk(data []byte, off uint64, typ ValueType, arrayIndex, arrayLen uint64, visit Visitor) uint64 {
	if typ == ValueArray {
		elemType := ValueType(binary.LittleEndian.Uint32(data[off:]))
		length := binary.LittleEndian.Uint64(data[off+4:])
		off += 4 + 8
		if visit != nil {
			visit(valueArrayStart, nil, arrayIndex, length)
		}
		for i := uint64(0); i < length; i++ {
			off = walk(data, off, elemType, i+1, length, visit)
		}
		if visit != nil {
			visit(valueArrayEnd, nil, arrayIndex, length)
		}
		return off
	}

	val := data[off:]
	if visit != nil {
		visit(typ, val, arrayIndex, arrayLen)
	}
	return off + scalarLen(typ, val)
}

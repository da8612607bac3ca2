// Package printvalue renders a metadata value's raw bytes as a Go
// value or a display string. It is the "pretty-printing of metadata
// values" external collaborator spec.md §1 calls out, used by both the
// show CLI command and the serve HTTP API so the two surfaces agree on
// what a value looks like.
package printvalue

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/antirez/gguf-tools/gguf"
)

// Scalar decodes one non-array scalar value into a Go value suitable
// for fmt.Sprint or JSON encoding.
func Scalar(typ gguf.ValueType, val []byte) any {
	switch typ {
	case gguf.ValueUint8:
		return val[0]
	case gguf.ValueInt8:
		return int8(val[0])
	case gguf.ValueUint16:
		return binary.LittleEndian.Uint16(val)
	case gguf.ValueInt16:
		return int16(binary.LittleEndian.Uint16(val))
	case gguf.ValueUint32:
		return binary.LittleEndian.Uint32(val)
	case gguf.ValueInt32:
		return int32(binary.LittleEndian.Uint32(val))
	case gguf.ValueFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(val))
	case gguf.ValueBool:
		return val[0] != 0
	case gguf.ValueString:
		n := binary.LittleEndian.Uint64(val)
		return string(val[8 : 8+n])
	case gguf.ValueUint64:
		return binary.LittleEndian.Uint64(val)
	case gguf.ValueInt64:
		return int64(binary.LittleEndian.Uint64(val))
	case gguf.ValueFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(val))
	default:
		return nil
	}
}

// Key renders an entire key's value (scalar or array) as a display
// string, the way `show` prints one kv line.
func Key(k gguf.Key) string {
	if elemType, _, ok := k.IsArray(); ok {
		var parts []string
		k.Walk(func(typ gguf.ValueType, val []byte, idx, length uint64) {
			if typ == gguf.ArrayStart || typ == gguf.ArrayEnd {
				return
			}
			parts = append(parts, fmt.Sprint(Scalar(typ, val)))
		})
		return "[" + strings.Join(parts, ", ") + "] (" + gguf.ValueTypeName(elemType) + ")"
	}
	return fmt.Sprint(Scalar(k.Type, k.Value))
}

// KeyJSON renders a key's value as a plain Go value for JSON encoding:
// a scalar, or a []any for arrays.
func KeyJSON(k gguf.Key) any {
	if _, _, ok := k.IsArray(); ok {
		var vals []any
		k.Walk(func(typ gguf.ValueType, val []byte, idx, length uint64) {
			if typ == gguf.ArrayStart || typ == gguf.ArrayEnd {
				return
			}
			vals = append(vals, Scalar(typ, val))
		})
		return vals
	}
	return Scalar(k.Type, k.Value)
}

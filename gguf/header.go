package gguf

import "encoding/binary"

// HeaderSize is the fixed size, in bytes, of the GGUF file header.
const HeaderSize = 24

// Magic is the 4-byte signature every GGUF file starts with.
var Magic = [4]byte{'G', 'G', 'U', 'F'}

// Version is the only wire version this package writes and the only one
// it accepts on read.
const Version = 3

// DefaultAlignment is the alignment assumed for a session until a
// general.alignment key overrides it (spec.md §3).
const DefaultAlignment = 32

// header mirrors the 24-byte on-disk layout: magic, version, tensor
// count, metadata kv count, all little-endian.
type header struct {
	Magic       [4]byte
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

func parseHeader(data []byte) (header, error) {
	var h header
	if len(data) < HeaderSize {
		return h, newErr(KindInvalid, "", "file smaller than header size", nil)
	}
	copy(h.Magic[:], data[0:4])
	if h.Magic != Magic {
		return h, newErr(KindInvalid, "", "bad magic", nil)
	}
	h.Version = binary.LittleEndian.Uint32(data[4:8])
	h.TensorCount = binary.LittleEndian.Uint64(data[8:16])
	h.KVCount = binary.LittleEndian.Uint64(data[16:24])
	return h, nil
}

func (h header) bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint64(b[8:16], h.TensorCount)
	binary.LittleEndian.PutUint64(b[16:24], h.KVCount)
	return b
}

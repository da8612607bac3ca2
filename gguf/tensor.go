package gguf

import "encoding/binary"

const maxDims = 4

// tensorDescSize returns the offset just past the tensor descriptor that
// starts at off: an 8-byte name length, the name bytes, a 4-byte ndim,
// ndim 8-byte dims, a 4-byte type id and an 8-byte relative offset.
func tensorDescSize(data []byte, off uint64) (uint64, error) {
	if off+8 > uint64(len(data)) {
		return 0, newErr(KindInvalid, "", "truncated tensor name length", nil)
	}
	nameLen := binary.LittleEndian.Uint64(data[off:])
	off += 8 + nameLen
	if off+4 > uint64(len(data)) {
		return 0, newErr(KindInvalid, "", "truncated tensor ndim", nil)
	}
	ndim := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if ndim > maxDims {
		return 0, newErr(KindInvalid, "", "tensor ndim exceeds 4", nil)
	}
	off += 8 * uint64(ndim)
	off += 4 // type
	off += 8 // relative offset
	if off > uint64(len(data)) {
		return 0, newErr(KindInvalid, "", "truncated tensor descriptor", nil)
	}
	return off, nil
}

// Tensor is one parsed tensor descriptor, with its weight region's
// absolute offset into the session's mapping already resolved against
// the session's data-section base.
type Tensor struct {
	Name      string
	Dims      []uint64
	Type      TensorType
	RelOffset uint64
	AbsOffset uint64
	NumWeights uint64
	ByteSize  uint64
}

// Weights returns the raw, still block-quantized bytes backing this
// tensor. The slice aliases the session's mapping and is invalidated by
// the next Append* call or Close.
func (s *Session) Weights(t Tensor) ([]byte, error) {
	end := t.AbsOffset + t.ByteSize
	if end > uint64(len(s.data)) {
		return nil, newErr(KindInvalid, s.path, "tensor weights run past end of file", nil)
	}
	return s.data[t.AbsOffset:end], nil
}

// DataOffset returns the absolute offset of the data section's first
// byte. It is zero until the first NextTensor call has computed it.
func (s *Session) DataOffset() uint64 { return s.dataOff }

// computeDataOffset performs the two-pass scan described in spec.md §3:
// walk every tensor descriptor once, without interpreting it, to learn
// the total size of the descriptor section; the data section begins at
// the first alignment boundary at or after that point.
func (s *Session) computeDataOffset() error {
	off := s.off
	for i := uint64(0); i < s.leftTensors; i++ {
		next, err := tensorDescSize(s.data, off)
		if err != nil {
			return withPath(err, s.path)
		}
		off = next
	}
	s.dataOff = off + alignPadding(s.alignment, off)
	return nil
}

// NextTensor parses the next tensor descriptor and advances the
// session's cursor past it, resolving the tensor's absolute weight
// offset against the session's data section base. It fails with
// KindPrecondition if metadata keys remain unconsumed, matching the
// original's assertion that the kv walk must finish before tensors are
// read. It returns (Tensor{}, false, nil) once every tensor the header
// promised has been consumed.
func (s *Session) NextTensor() (Tensor, bool, error) {
	if s.leftKV != 0 {
		return Tensor{}, false, newErr(KindPrecondition, s.path, "metadata keys remain; finish NextKey before NextTensor", nil)
	}
	if s.leftTensors == 0 {
		return Tensor{}, false, nil
	}
	if s.dataOff == 0 {
		if err := s.computeDataOffset(); err != nil {
			return Tensor{}, false, err
		}
	}

	data := s.data
	off := s.off

	if off+8 > uint64(len(data)) {
		return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor name length", nil)
	}
	nameLen := binary.LittleEndian.Uint64(data[off:])
	off += 8
	if off+nameLen > uint64(len(data)) {
		return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor name", nil)
	}
	name := string(data[off : off+nameLen])
	off += nameLen

	if off+4 > uint64(len(data)) {
		return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor ndim", nil)
	}
	ndim := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if ndim > maxDims {
		return Tensor{}, false, newErr(KindInvalid, s.path, "tensor ndim exceeds 4", nil)
	}

	dims := make([]uint64, ndim)
	numWeights := uint64(1)
	for i := uint32(0); i < ndim; i++ {
		if off+8 > uint64(len(data)) {
			return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor dims", nil)
		}
		dims[i] = binary.LittleEndian.Uint64(data[off:])
		numWeights *= dims[i]
		off += 8
	}

	if off+4 > uint64(len(data)) {
		return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor type", nil)
	}
	typ := TensorType(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	if off+8 > uint64(len(data)) {
		return Tensor{}, false, newErr(KindInvalid, s.path, "truncated tensor offset", nil)
	}
	relOffset := binary.LittleEndian.Uint64(data[off:])
	off += 8

	byteSize, err := BlockSize(typ, numWeights)
	if err != nil {
		return Tensor{}, false, withPath(err, s.path)
	}

	t := Tensor{
		Name:       name,
		Dims:       dims,
		Type:       typ,
		RelOffset:  relOffset,
		AbsOffset:  s.dataOff + relOffset,
		NumWeights: numWeights,
		ByteSize:   byteSize,
	}

	s.off = off
	s.leftTensors--
	return t, true, nil
}

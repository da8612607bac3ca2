package gguf

import "encoding/binary"

// appendPhase tracks where in the kv / descriptor / payload sequence an
// append session is, enforcing the same ordering the original tool's
// split-mixtral writer follows by convention: all metadata first, then
// every tensor descriptor, then every tensor's weight bytes in the same
// order as their descriptors.
type appendPhase int

const (
	phaseKV appendPhase = iota
	phaseDescriptors
	phasePayloads
)

// fileSize is the logical end of the file as written so far; writes
// always land at fileSize and extend it, since the mapping itself is
// never written through.
func (s *Session) writeAt(b []byte) error {
	if _, err := s.file.WriteAt(b, int64(s.fileSize)); err != nil {
		return newErr(KindIO, s.path, "write", err)
	}
	s.fileSize += uint64(len(b))
	return nil
}

func (s *Session) rewriteCounts() error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], s.hdr.TensorCount)
	if _, err := s.file.WriteAt(b[:], 8); err != nil {
		return newErr(KindIO, s.path, "update tensor count", err)
	}
	binary.LittleEndian.PutUint64(b[:], s.hdr.KVCount)
	if _, err := s.file.WriteAt(b[:], 16); err != nil {
		return newErr(KindIO, s.path, "update kv count", err)
	}
	return nil
}

// AppendKV appends one metadata key with a pre-encoded scalar, string
// or array value (EncodeScalarU32 below encodes the uint32 case). It
// must run to completion before the first AppendTensor* call; calling
// it once the file holds any tensor descriptor fails with KindInvalid,
// mirroring gguf_append_kv's contract in the original tool.
func (s *Session) AppendKV(name string, typ ValueType, value []byte) error {
	if s.mode != ModeReadWrite {
		return newErr(KindPrecondition, s.path, "session not opened read/write", nil)
	}
	if s.phase != phaseKV || s.hdr.TensorCount != 0 {
		return newErr(KindInvalid, s.path, "cannot append metadata after tensor descriptors have started", nil)
	}

	nameBuf := make([]byte, 8+len(name))
	binary.LittleEndian.PutUint64(nameBuf, uint64(len(name)))
	copy(nameBuf[8:], name)
	if err := s.writeAt(nameBuf); err != nil {
		return err
	}

	var typBuf [4]byte
	binary.LittleEndian.PutUint32(typBuf[:], uint32(typ))
	if err := s.writeAt(typBuf[:]); err != nil {
		return err
	}
	if err := s.writeAt(value); err != nil {
		return err
	}

	s.hdr.KVCount++
	if err := s.rewriteCounts(); err != nil {
		return err
	}
	if name == "general.alignment" && typ == ValueUint32 && len(value) >= 4 {
		if align := binary.LittleEndian.Uint32(value); align > 0 {
			s.alignment = uint64(align)
		}
	}
	return s.Remap()
}

// EncodeScalarU32 is a convenience encoder for a uint32-valued key such
// as general.alignment.
func EncodeScalarU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// AppendTensorDescriptor appends one tensor descriptor with dims
// numWeights worth of typ-quantized weights, assigning it the next
// alignment-padded relative offset into the data section. It must run
// after all AppendKV calls and before any AppendTensorBytes call for a
// later descriptor; calling it after payload bytes have started fails
// with KindPrecondition.
func (s *Session) AppendTensorDescriptor(name string, dims []uint64, typ TensorType) (Tensor, error) {
	if s.mode != ModeReadWrite {
		return Tensor{}, newErr(KindPrecondition, s.path, "session not opened read/write", nil)
	}
	if s.phase == phasePayloads {
		return Tensor{}, newErr(KindPrecondition, s.path, "cannot append a tensor descriptor after payload writes have started", nil)
	}
	if len(dims) > maxDims {
		return Tensor{}, newErr(KindInvalid, s.path, "tensor ndim exceeds 4", nil)
	}
	s.phase = phaseDescriptors

	numWeights := uint64(1)
	for _, d := range dims {
		numWeights *= d
	}
	byteSize, err := BlockSize(typ, numWeights)
	if err != nil {
		return Tensor{}, withPath(err, s.path)
	}

	relOffset := s.nextRelOffset

	buf := make([]byte, 0, 8+len(name)+4+8*len(dims)+4+8)
	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(len(name)))
	buf = append(buf, tmp8[:]...)
	buf = append(buf, name...)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(dims)))
	buf = append(buf, tmp4[:]...)
	for _, d := range dims {
		binary.LittleEndian.PutUint64(tmp8[:], d)
		buf = append(buf, tmp8[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(typ))
	buf = append(buf, tmp4[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], relOffset)
	buf = append(buf, tmp8[:]...)

	if err := s.writeAt(buf); err != nil {
		return Tensor{}, err
	}

	s.hdr.TensorCount++
	if err := s.rewriteCounts(); err != nil {
		return Tensor{}, err
	}
	if err := s.Remap(); err != nil {
		return Tensor{}, err
	}

	s.nextRelOffset = relOffset + byteSize + alignPadding(s.alignment, byteSize)

	return Tensor{
		Name:       name,
		Dims:       dims,
		Type:       typ,
		RelOffset:  relOffset,
		NumWeights: numWeights,
		ByteSize:   byteSize,
	}, nil
}

// AppendTensorBytes appends the weight bytes for a descriptor previously
// returned by AppendTensorDescriptor. Tensors must be written in the
// same order their descriptors were appended in; out-of-order writes
// fail with KindPrecondition, since the data section's base offset
// (fixed at the first payload write) makes each descriptor's relative
// offset only meaningful in that order.
func (s *Session) AppendTensorBytes(t Tensor, data []byte) error {
	if s.mode != ModeReadWrite {
		return newErr(KindPrecondition, s.path, "session not opened read/write", nil)
	}
	if s.phase == phaseKV {
		return newErr(KindPrecondition, s.path, "no tensor descriptors have been appended yet", nil)
	}
	if uint64(len(data)) != t.ByteSize {
		return newErr(KindInvalid, s.path, "tensor byte slice does not match its declared size", nil)
	}

	if s.phase == phaseDescriptors {
		s.dataOff = s.fileSize + alignPadding(s.alignment, s.fileSize)
		if pad := s.dataOff - s.fileSize; pad > 0 {
			if err := s.writeAt(make([]byte, pad)); err != nil {
				return err
			}
		}
		s.payloadCursor = s.dataOff
		s.phase = phasePayloads
	}

	expect := s.dataOff + t.RelOffset
	if s.payloadCursor != expect {
		return newErr(KindPrecondition, s.path, "tensor bytes must be appended in descriptor order", nil)
	}

	if err := s.writeAt(data); err != nil {
		return err
	}
	s.payloadCursor += t.ByteSize
	if pad := alignPadding(s.alignment, t.ByteSize); pad > 0 {
		if err := s.writeAt(make([]byte, pad)); err != nil {
			return err
		}
		s.payloadCursor += pad
	}

	return s.Remap()
}

package gguf

// TensorType identifies the on-disk encoding of a tensor's weights.
type TensorType uint32

// Tensor type ids, per spec.md §6. 4 and 5 (q4_2/q4_3) are deprecated and
// treated as unknown, matching the original gguflib.c table.
const (
	TypeF32  TensorType = 0
	TypeF16  TensorType = 1
	TypeQ4_0 TensorType = 2
	TypeQ4_1 TensorType = 3
	// 4, 5: q4_2, q4_3 — deprecated, unsupported.
	TypeQ5_0 TensorType = 6
	TypeQ5_1 TensorType = 7
	TypeQ8_0 TensorType = 8
	TypeQ8_1 TensorType = 9
	TypeQ2_K TensorType = 10
	TypeQ3_K TensorType = 11
	TypeQ4_K TensorType = 12
	TypeQ5_K TensorType = 13
	TypeQ6_K TensorType = 14
	TypeQ8_K TensorType = 15
	TypeI8   TensorType = 16
	TypeI16  TensorType = 17
	TypeI32  TensorType = 18
	TypeBF16 TensorType = 30
)

// typeInfo describes the block geometry of a tensor type: how many
// weights share a block and how many bytes that block occupies on disk.
type typeInfo struct {
	name          string
	itemsPerBlock uint64
	bytesPerBlock uint64
}

var tensorTypeTable = map[TensorType]typeInfo{
	TypeF32:  {"f32", 1, 4},
	TypeF16:  {"f16", 1, 2},
	TypeQ4_0: {"q4_0", 32, 18},
	TypeQ4_1: {"q4_1", 32, 20},
	TypeQ5_0: {"q5_0", 32, 22},
	TypeQ5_1: {"q5_1", 32, 24},
	TypeQ8_0: {"q8_0", 32, 34},
	TypeQ8_1: {"q8_1", 32, 40},
	// The id table and the detailed block layout disagree on Q2_K's size
	// (82 vs 84 bytes); 84 is what the qs/ql/d/dmin layout actually adds
	// up to, so that's what this package uses (see DESIGN.md).
	TypeQ2_K: {"q2_k", 256, 84},
	TypeQ3_K: {"q3_k", 256, 110},
	TypeQ4_K: {"q4_k", 256, 144},
	TypeQ5_K: {"q5_k", 256, 176},
	TypeQ6_K: {"q6_k", 256, 210},
	TypeQ8_K: {"q8_k", 256, 292},
	TypeI8:   {"i8", 1, 1},
	TypeI16:  {"i16", 1, 2},
	TypeI32:  {"i32", 1, 4},
	TypeBF16: {"bf16", 1, 2},
}

// TypeName returns the display name of a tensor type, or "unknown" if
// the id isn't in the registry (covers deprecated q4_2/q4_3 and any
// value outside the known range).
func TypeName(t TensorType) string {
	if info, ok := tensorTypeTable[t]; ok {
		return info.name
	}
	return "unknown"
}

// ItemsPerBlock and BytesPerBlock return the block geometry for t, and
// false if t isn't registered.
func ItemsPerBlock(t TensorType) (uint64, bool) {
	info, ok := tensorTypeTable[t]
	return info.itemsPerBlock, ok
}

func BytesPerBlock(t TensorType) (uint64, bool) {
	info, ok := tensorTypeTable[t]
	return info.bytesPerBlock, ok
}

// BlockSize computes the on-disk byte size of a tensor with numWeights
// weights of type t, per invariant 3: ceil(numWeights/itemsPerBlock) *
// bytesPerBlock.
func BlockSize(t TensorType, numWeights uint64) (uint64, error) {
	info, ok := tensorTypeTable[t]
	if !ok {
		return 0, newErr(KindInvalid, "", "unknown tensor type", nil)
	}
	blocks := (numWeights + info.itemsPerBlock - 1) / info.itemsPerBlock
	return blocks * info.bytesPerBlock, nil
}

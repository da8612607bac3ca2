package moe

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antirez/gguf-tools/gguf"
	"github.com/antirez/gguf-tools/internal/fixture"
)

func f32bytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestParseExpertIDsRepeatsLastDigit(t *testing.T) {
	ids, err := ParseExpertIDs("3")
	require.NoError(t, err)
	for i := 0; i < NumLayers; i++ {
		assert.Equal(t, 3, ids[i])
	}

	ids, err = ParseExpertIDs("12")
	require.NoError(t, err)
	assert.Equal(t, 1, ids[0])
	for i := 1; i < NumLayers; i++ {
		assert.Equal(t, 2, ids[i])
	}
}

func TestParseExpertIDsRejectsNonDigit(t *testing.T) {
	_, err := ParseExpertIDs("3x")
	require.Error(t, err)
}

func TestSplitSelectsAndRenamesExpertTensors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mixtral.gguf")
	dst := filepath.Join(dir, "single-expert.gguf")

	spec := fixture.Spec{
		KVs: []fixture.KV{
			{Name: "llama.expert_count", Type: gguf.ValueUint32, U32: 2},
			{Name: "general.architecture", Type: gguf.ValueString, Str: "llama"},
		},
		Tensors: []fixture.Tensor{
			{Name: "blk.0.ffn_norm.weight", Dims: []uint64{1}, Type: gguf.TypeF32, Data: f32bytes(9)},
			{Name: "blk.0.ffn_gate.0.weight", Dims: []uint64{1}, Type: gguf.TypeF32, Data: f32bytes(100)},
			{Name: "blk.0.ffn_gate.1.weight", Dims: []uint64{1}, Type: gguf.TypeF32, Data: f32bytes(200)},
			{Name: "blk.1.ffn_down.0.weight", Dims: []uint64{1}, Type: gguf.TypeF32, Data: f32bytes(300)},
			{Name: "blk.1.ffn_down.1.weight", Dims: []uint64{1}, Type: gguf.TypeF32, Data: f32bytes(400)},
		},
	}

	built, err := fixture.Write(src, spec)
	require.NoError(t, err)
	require.NoError(t, built.Close())

	var ids ExpertIDs
	ids[0] = 0
	ids[1] = 1

	require.NoError(t, Split(src, dst, ids, false))

	r, err := gguf.Open(dst, gguf.ModeRead)
	require.NoError(t, err)
	defer r.Close()

	var kvNames []string
	for {
		k, ok, err := r.NextKey()
		require.NoError(t, err)
		if !ok {
			break
		}
		kvNames = append(kvNames, k.Name)
	}
	assert.Equal(t, []string{"general.architecture"}, kvNames)

	got := map[string]float32{}
	for {
		tensor, ok, err := r.NextTensor()
		require.NoError(t, err)
		if !ok {
			break
		}
		weights, err := r.Weights(tensor)
		require.NoError(t, err)
		values, err := gguf.DecodeF32(tensor.Type, weights, 1)
		require.NoError(t, err)
		got[tensor.Name] = values[0]
	}

	assert.Equal(t, map[string]float32{
		"blk.0.ffn_norm.weight": 9,
		"blk.0.ffn_gate.weight": 100,
		"blk.1.ffn_down.weight": 400,
	}, got)
}

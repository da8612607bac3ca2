package gguf

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

// E1: empty create + read.
func TestCreateEmptyFile(t *testing.T) {
	path := tempPath(t, "empty.gguf")

	s, err := Create(path, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), s.MetadataCount())
	assert.Equal(t, uint64(0), s.TensorCount())
	assert.Equal(t, int64(HeaderSize), s.Size())
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize), info.Size())

	reopened, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint64(0), reopened.MetadataCount())
	assert.Equal(t, uint64(0), reopened.TensorCount())
}

// E2: kv round-trip.
func TestAppendKVRoundTrip(t *testing.T) {
	path := tempPath(t, "kv.gguf")

	w, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, w.AppendKV("foo", ValueUint32, EncodeScalarU32(0xCAFEBABE)))

	barValue := make([]byte, 8+len("hello"))
	binary.LittleEndian.PutUint64(barValue, uint64(len("hello")))
	copy(barValue[8:], "hello")
	require.NoError(t, w.AppendKV("bar", ValueString, barValue))
	require.NoError(t, w.Close())

	r, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	k1, ok, err := r.NextKey()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foo", k1.Name)
	assert.Equal(t, uint32(0xCAFEBABE), binary.LittleEndian.Uint32(k1.Value))

	k2, ok, err := r.NextKey()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bar", k2.Name)
	n := binary.LittleEndian.Uint64(k2.Value)
	assert.Equal(t, "hello", string(k2.Value[8:8+n]))

	_, ok, err = r.NextKey()
	require.NoError(t, err)
	assert.False(t, ok)
}

// E3: alignment override.
func TestAlignmentOverride(t *testing.T) {
	path := tempPath(t, "aligned.gguf")

	w, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, w.AppendKV("general.alignment", ValueUint32, EncodeScalarU32(64)))

	payload := make([]byte, 12)
	binary.LittleEndian.PutUint32(payload[0:4], math.Float32bits(1.0))
	binary.LittleEndian.PutUint32(payload[4:8], math.Float32bits(2.0))
	binary.LittleEndian.PutUint32(payload[8:12], math.Float32bits(3.0))

	desc, err := w.AppendTensorDescriptor("weights", []uint64{3}, TypeF32)
	require.NoError(t, err)
	require.NoError(t, w.AppendTensorBytes(desc, payload))
	require.NoError(t, w.Close())

	r, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	_, ok, err := r.NextKey()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(64), r.Alignment())

	tensor, ok, err := r.NextTensor()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), tensor.AbsOffset%64)

	weights, err := r.Weights(tensor)
	require.NoError(t, err)
	values, err := DecodeF32(TypeF32, weights, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.0, 2.0, 3.0}, values)
}

func TestOpenRejectsShortFile(t *testing.T) {
	path := tempPath(t, "short.gguf")
	require.NoError(t, os.WriteFile(path, []byte("GGUF"), 0o644))

	_, err := Open(path, ModeRead)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalid, gerr.Kind)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := tempPath(t, "badmagic.gguf")
	h := header{Magic: [4]byte{'N', 'O', 'P', 'E'}, Version: Version}
	require.NoError(t, os.WriteFile(path, h.bytes(), 0o644))

	_, err := Open(path, ModeRead)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalid, gerr.Kind)
}

func TestAppendKVAfterTensorFails(t *testing.T) {
	path := tempPath(t, "badorder.gguf")
	w, err := Create(path, false)
	require.NoError(t, err)

	_, err = w.AppendTensorDescriptor("t", []uint64{1}, TypeF32)
	require.NoError(t, err)

	err = w.AppendKV("late", ValueUint32, EncodeScalarU32(1))
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalid, gerr.Kind)
	require.NoError(t, w.Close())
}

func TestNextTensorWhileKVRemainsFails(t *testing.T) {
	path := tempPath(t, "kvremains.gguf")
	w, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, w.AppendKV("a", ValueUint32, EncodeScalarU32(1)))
	require.NoError(t, w.Close())

	r, err := Open(path, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.NextTensor()
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindPrecondition, gerr.Kind)
}

func TestCreateRefusesExistingFileWithoutOverwrite(t *testing.T) {
	path := tempPath(t, "exists.gguf")
	w, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = Create(path, false)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindExists, gerr.Kind)
}

package serve

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antirez/gguf-tools/gguf"
	"github.com/antirez/gguf-tools/internal/fixture"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func buildFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.gguf")
	spec := fixture.Spec{
		KVs: []fixture.KV{
			{Name: "general.architecture", Type: gguf.ValueString, Str: "llama"},
		},
		Tensors: []fixture.Tensor{
			{Name: "tok_embeddings.weight", Dims: []uint64{4}, Type: gguf.TypeF32, Data: make([]byte, 16)},
		},
	}
	s, err := fixture.Write(path, spec)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	return path
}

func TestHeaderRoute(t *testing.T) {
	path := buildFixture(t)
	r := Router(path)

	req := httptest.NewRequest(http.MethodGet, "/header", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["tensor_count"])
	assert.Equal(t, float64(1), body["metadata_kv_count"])
}

func TestMetadataRoute(t *testing.T) {
	path := buildFixture(t)
	r := Router(path)

	req := httptest.NewRequest(http.MethodGet, "/metadata", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "general.architecture", body[0]["name"])
	assert.Equal(t, "llama", body[0]["value"])
}

func TestTensorsRoute(t *testing.T) {
	path := buildFixture(t)
	r := Router(path)

	req := httptest.NewRequest(http.MethodGet, "/tensors", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "tok_embeddings.weight", body[0]["name"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&gguf.Error{Kind: gguf.KindInvalid}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&gguf.Error{Kind: gguf.KindPrecondition}))
	assert.Equal(t, http.StatusNotImplemented, statusFor(&gguf.Error{Kind: gguf.KindUnsupported}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&gguf.Error{Kind: gguf.KindIO}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&gguf.Error{Kind: gguf.KindOutOfMemory}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("plain error")))
}

func TestTensorByNameRouteNotFound(t *testing.T) {
	path := buildFixture(t)
	r := Router(path)

	req := httptest.NewRequest(http.MethodGet, "/tensors/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTensorByNameRouteUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unsupported.gguf")
	spec := fixture.Spec{
		Tensors: []fixture.Tensor{
			{Name: "weight", Dims: []uint64{32}, Type: gguf.TypeQ5_0, Data: make([]byte, 22)},
		},
	}
	s, err := fixture.Write(path, spec)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	r := Router(path)
	req := httptest.NewRequest(http.MethodGet, "/tensors/weight", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestTensorByNameRoute(t *testing.T) {
	path := buildFixture(t)
	r := Router(path)

	req := httptest.NewRequest(http.MethodGet, "/tensors/tok_embeddings.weight?count=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	values, ok := body["values"].([]any)
	require.True(t, ok)
	assert.Len(t, values, 2)
}

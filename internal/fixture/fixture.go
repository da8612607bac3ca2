// Package fixture builds small GGUF files for tests from loosely-typed
// literals, the way convert.go decodes a safetensors header's raw JSON
// map into a typed struct with mapstructure rather than hand-walking
// map[string]any. Test authors write a map literal describing metadata
// and tensors; Decode turns it into a typed Spec, and Write turns that
// into a real file on disk via the gguf package's own session API.
package fixture

import (
	"encoding/binary"

	"github.com/mitchellh/mapstructure"

	"github.com/antirez/gguf-tools/gguf"
)

// KV describes one metadata entry to write into a fixture file.
type KV struct {
	Name string          `mapstructure:"name"`
	Type gguf.ValueType  `mapstructure:"type"`
	U32  uint32          `mapstructure:"u32"`
	Str  string          `mapstructure:"str"`
	Raw  []byte          `mapstructure:"raw"`
}

// Tensor describes one tensor descriptor plus its raw payload bytes.
type Tensor struct {
	Name string          `mapstructure:"name"`
	Dims []uint64        `mapstructure:"dims"`
	Type gguf.TensorType `mapstructure:"type"`
	Data []byte          `mapstructure:"data"`
}

// Spec is the typed shape test literals decode into.
type Spec struct {
	KVs     []KV     `mapstructure:"kvs"`
	Tensors []Tensor `mapstructure:"tensors"`
}

// Decode converts a loosely-typed map literal (as tests write them)
// into a Spec.
func Decode(raw map[string]any) (Spec, error) {
	var spec Spec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// encode turns one KV's typed fields into its on-disk value bytes.
func (k KV) encode() []byte {
	if k.Raw != nil {
		return k.Raw
	}
	switch k.Type {
	case gguf.ValueUint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, k.U32)
		return b
	case gguf.ValueString:
		b := make([]byte, 8+len(k.Str))
		binary.LittleEndian.PutUint64(b, uint64(len(k.Str)))
		copy(b[8:], k.Str)
		return b
	default:
		return nil
	}
}

// Write materializes spec as a real GGUF file at path, overwriting any
// existing file, and returns it opened read-only — ready for a test to
// exercise NextKey/NextTensor/Decode against.
func Write(path string, spec Spec) (*gguf.Session, error) {
	w, err := gguf.Create(path, true)
	if err != nil {
		return nil, err
	}

	for _, kv := range spec.KVs {
		if err := w.AppendKV(kv.Name, kv.Type, kv.encode()); err != nil {
			w.Close()
			return nil, err
		}
	}

	descs := make([]gguf.Tensor, len(spec.Tensors))
	for i, t := range spec.Tensors {
		d, err := w.AppendTensorDescriptor(t.Name, t.Dims, t.Type)
		if err != nil {
			w.Close()
			return nil, err
		}
		descs[i] = d
	}
	for i, t := range spec.Tensors {
		if err := w.AppendTensorBytes(descs[i], t.Data); err != nil {
			w.Close()
			return nil, err
		}
	}
	w.Close()

	return gguf.Open(path, gguf.ModeRead)
}

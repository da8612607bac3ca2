// Package moe extracts a single expert's feed-forward weights from a
// Mixture-of-Experts GGUF model, producing a dense single-expert file.
// It is grounded on gguf-tools.c's gguf_tools_split_mixtral: every
// shared tensor and every non-expert metadata key is copied verbatim;
// per-layer expert tensors are filtered down to the chosen expert and
// renamed to drop the expert-id component.
package moe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antirez/gguf-tools/gguf"
)

// NumLayers is the fixed per-layer expert-id table size the original
// tool assumes (32 transformer blocks).
const NumLayers = 32

// ExpertIDs maps transformer block index to the expert id (0..7) to
// keep for that block's feed-forward tensors.
type ExpertIDs [NumLayers]int

// ParseExpertIDs builds an ExpertIDs table from a digit string, one
// digit per layer; if digits is shorter than NumLayers, the last digit
// given is repeated for the remaining layers — matching the CLI's
// split-mixtral argument contract.
func ParseExpertIDs(digits string) (ExpertIDs, error) {
	var ids ExpertIDs
	if len(digits) == 0 {
		return ids, fmt.Errorf("empty expert id string")
	}
	last := 0
	for i := 0; i < NumLayers; i++ {
		if i < len(digits) {
			d := digits[i]
			if d < '0' || d > '7' {
				return ids, fmt.Errorf("expert id %q at position %d is not a digit in 0..7", d, i)
			}
			last = int(d - '0')
		}
		ids[i] = last
	}
	return ids, nil
}

type pendingTensor struct {
	destName string
	orig     gguf.Tensor
}

// Split reads src (opened read-only) and writes a new file at dst
// (created, overwriting any existing file iff overwrite is true)
// containing every shared tensor plus, for each expert-selective
// feed-forward tensor, only the copy belonging to ids[layer].
func Split(srcPath, dstPath string, ids ExpertIDs, overwrite bool) error {
	src, err := gguf.Open(srcPath, gguf.ModeRead)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := gguf.Create(dstPath, overwrite)
	if err != nil {
		return err
	}
	defer dst.Close()

	for {
		key, ok, err := src.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if strings.Contains(key.Name, "llama.expert_") {
			continue
		}
		if err := dst.AppendKV(key.Name, key.Type, key.Value); err != nil {
			return err
		}
	}

	var kept []pendingTensor
	for {
		t, ok, err := src.NextTensor()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		destName := t.Name
		if isExpertSelective(t.Name) {
			block, err := parseBlockIndex(t.Name)
			if err != nil {
				return err
			}
			if block < 0 || block >= NumLayers {
				return fmt.Errorf("tensor %q names block %d outside 0..%d", t.Name, block, NumLayers-1)
			}
			expertID := ids[block]
			match := "." + strconv.Itoa(expertID) + ".weight"
			idx := strings.Index(t.Name, match)
			if idx < 0 {
				continue // not this expert's copy; drop it.
			}
			destName = t.Name[:idx] + t.Name[idx+2:]
		}

		kept = append(kept, pendingTensor{destName: destName, orig: t})
	}

	descs := make([]gguf.Tensor, len(kept))
	for i, p := range kept {
		d, err := dst.AppendTensorDescriptor(p.destName, p.orig.Dims, p.orig.Type)
		if err != nil {
			return err
		}
		descs[i] = d
	}

	for i, p := range kept {
		weights, err := src.Weights(p.orig)
		if err != nil {
			return err
		}
		if err := dst.AppendTensorBytes(descs[i], weights); err != nil {
			return err
		}
	}

	return nil
}

// isExpertSelective reports whether a tensor name names a per-expert
// feed-forward weight: it contains ".ffn_" but not ".ffn_norm".
func isExpertSelective(name string) bool {
	return strings.Contains(name, ".ffn_") && !strings.Contains(name, ".ffn_norm")
}

// parseBlockIndex extracts N from a tensor name of the form "blk.N.…".
func parseBlockIndex(name string) (int, error) {
	const prefix = "blk."
	if !strings.HasPrefix(name, prefix) {
		return 0, fmt.Errorf("expert-selective tensor %q does not start with %q", name, prefix)
	}
	rest := name[len(prefix):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return 0, fmt.Errorf("expert-selective tensor %q has no block terminator", name)
	}
	return strconv.Atoi(rest[:dot])
}

package glob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"blk.*.ffn_gate.weight", "blk.0.ffn_gate.weight", true},
		{"blk.*.ffn_gate.weight", "blk.12.ffn_gate.weight", true},
		{"blk.*.attn_q.weight", "blk.0.ffn_gate.weight", false},
		{"blk.?.ffn_norm.weight", "blk.3.ffn_norm.weight", true},
		{"blk.?.ffn_norm.weight", "blk.30.ffn_norm.weight", false},
		{"tok_embeddings.weight", "tok_embeddings.weight", true},
		{"*", "anything at all", true},
		{"blk.[0-2].weight", "blk.1.weight", true},
		{"blk.[0-2].weight", "blk.5.weight", false},
		{"blk.[^0-2].weight", "blk.5.weight", true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Match(c.pattern, c.s, false), "pattern %q against %q", c.pattern, c.s)
	}
}

func TestMatchNoCase(t *testing.T) {
	assert.True(t, Match("BLK.*", "blk.0.weight", true))
	assert.False(t, Match("BLK.*", "blk.0.weight", false))
}

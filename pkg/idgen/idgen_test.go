package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasKindPrefix(t *testing.T) {
	for _, kind := range []Kind{KindTree, KindNode, KindBranch} {
		id := New(kind)
		assert.True(t, strings.HasPrefix(id, string(kind)+"_"), id)
		assert.Len(t, strings.Split(id, "_"), 3)
	}
}

func TestNewIsUniqueWithinSession(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := New(KindNode)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestSequenceCountsPerKind(t *testing.T) {
	seq := NewSequence("")
	assert.Equal(t, "node_1", seq.NewID(KindNode))
	assert.Equal(t, "node_2", seq.NewID(KindNode))
	assert.Equal(t, "branch_1", seq.NewID(KindBranch))

	prefixed := NewSequence("demo")
	assert.Equal(t, "demo_tree_1", prefixed.NewID(KindTree))
}

package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainOf(id string, tags ...string) []*Node {
	chain := make([]*Node, len(tags))
	for i, tag := range tags {
		n := &Node{Tag: tag, Depth: i, IsVirtual: i < len(tags)-1, RoleLabel: "V"}
		if i > 0 {
			n.ParentTag = tags[i-1]
		}
		if !n.IsVirtual {
			n.ID = id
			n.RoleLabel = RoleLeaf
		}
		chain[i] = n
	}
	return chain
}

func TestConsolidateMergesVirtualAncestors(t *testing.T) {
	root := Consolidate([][]*Node{
		chainOf("a", "S1", "Z1", "L1"),
		chainOf("b", "S1", "Z1", "L2"),
		chainOf("c", "S1", "Z2", "L1"),
		chainOf("d", "S2", "Z1", "L3"),
	})

	assert.Equal(t, RoleRoot, root.RoleLabel)
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 2)

	s1 := root.Children[0]
	assert.Equal(t, "S1", s1.Tag)
	assert.Equal(t, "V:S1", s1.ID)
	assert.Equal(t, RoleRoot, s1.ParentID)
	require.Len(t, s1.Children, 2)

	z1 := s1.Children[0]
	assert.Equal(t, "V:S1/Z1", z1.ID)
	require.Len(t, z1.Children, 2)
	assert.Equal(t, "a", z1.Children[0].ID)
	assert.Equal(t, "b", z1.Children[1].ID)
	assert.Equal(t, 3, z1.Children[0].Depth)
	assert.Equal(t, "V:S1/Z1", z1.Children[0].ParentID)

	// Same tag under a different parent stays separate.
	assert.Equal(t, "V:S2/Z1", root.Children[1].Children[0].ID)

	virtual, real := Count(root)
	assert.Equal(t, 5, virtual)
	assert.Equal(t, 4, real)
}

func TestConsolidateKeepsDuplicateLeaves(t *testing.T) {
	root := Consolidate([][]*Node{
		chainOf("a", "S1", "L1"),
		chainOf("a", "S1", "L1"),
	})
	require.Len(t, root.Children, 1)
	assert.Len(t, root.Children[0].Children, 2)
}

func TestConsolidateDoesNotMutateInput(t *testing.T) {
	chain := chainOf("a", "S1", "Z1", "L1")
	Consolidate([][]*Node{chain})
	assert.Empty(t, chain[0].Children)
	assert.Equal(t, 0, chain[0].Depth)
	assert.Empty(t, chain[0].ParentID)
}

func TestConsolidateEmpty(t *testing.T) {
	root := Consolidate(nil)
	assert.Empty(t, root.Children)
	virtual, real := Count(root)
	assert.Zero(t, virtual)
	assert.Zero(t, real)
}

package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// branchyTree: root -> a -> b, root -> c (on branch "Alt").
func branchyTree(t *testing.T) (*Tree, map[string]string) {
	t.Helper()
	e := newTestEngine()
	tr := e.CreateTree("Branchy", "root q", "root a")
	ids := map[string]string{"root": tr.RootID}

	var err error
	tr, ids["a"], err = e.AppendExchange(tr, "a q", "a a")
	require.NoError(t, err)
	tr, ids["b"], err = e.AppendExchange(tr, "b q", "b a")
	require.NoError(t, err)
	tr, _, err = e.CreateBranch(tr, ids["root"], "Alt")
	require.NoError(t, err)
	tr, ids["c"], err = e.AppendExchange(tr, "c q", "c a")
	require.NoError(t, err)
	return tr, ids
}

func TestPathToOrdersRootFirst(t *testing.T) {
	tr, ids := branchyTree(t)

	path := PathTo(tr, ids["b"])
	require.Len(t, path, 3)
	assert.Equal(t, ids["root"], path[0].ID)
	assert.Equal(t, ids["a"], path[1].ID)
	assert.Equal(t, ids["b"], path[2].ID)
	assert.Equal(t, NodeDepth(tr, ids["b"])+1, len(path))

	alt := PathTo(tr, ids["c"])
	require.Len(t, alt, 2)
	assert.Equal(t, ids["root"], alt[0].ID)
	assert.Equal(t, ids["c"], alt[1].ID)

	assert.Equal(t, alt, CurrentPath(tr))
}

func TestPathToUnknownNodeIsEmpty(t *testing.T) {
	tr, _ := branchyTree(t)
	assert.Empty(t, PathTo(tr, "node_nope"))
	assert.Empty(t, PathTo(tr, ""))
	assert.Equal(t, -1, NodeDepth(tr, "node_nope"))
}

func TestPathToStopsAtMissingAncestor(t *testing.T) {
	tr, ids := branchyTree(t)
	nodes := tr.copyNodes(0)
	delete(nodes, ids["a"])
	broken := *tr
	broken.Nodes = nodes

	path := PathTo(&broken, ids["b"])
	require.Len(t, path, 1)
	assert.Equal(t, ids["b"], path[0].ID)
}

func TestHistoryAlternatesTurns(t *testing.T) {
	tr, ids := branchyTree(t)

	msgs := History(tr, ids["b"])
	require.Len(t, msgs, 6)
	assert.Equal(t, Message{Role: RoleUser, Content: "root q"}, msgs[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "root a"}, msgs[1])
	assert.Equal(t, Message{Role: RoleUser, Content: "b q"}, msgs[4])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "b a"}, msgs[5])

	assert.Empty(t, History(tr, "missing"))
}

func TestWalkIsBreadthFirstInCreationOrder(t *testing.T) {
	tr, ids := branchyTree(t)
	var got []string
	for _, n := range Walk(tr) {
		got = append(got, n.ID)
	}
	assert.Equal(t, []string{ids["root"], ids["a"], ids["c"], ids["b"]}, got)
}

func TestLeafNodesAndDepth(t *testing.T) {
	tr, ids := branchyTree(t)

	var leaves []string
	for _, n := range LeafNodes(tr) {
		leaves = append(leaves, n.ID)
	}
	assert.Equal(t, []string{ids["c"], ids["b"]}, leaves)
	assert.Equal(t, 2, Depth(tr))

	e := newTestEngine()
	assert.Equal(t, 0, Depth(e.CreateTree("empty", "", "")))
	assert.Equal(t, 0, Depth(e.CreateTree("single", "q", "a")))
	assert.Empty(t, LeafNodes(e.CreateTree("empty", "", "")))
}

func TestValidateRejectsBrokenTrees(t *testing.T) {
	tr, ids := branchyTree(t)
	require.NoError(t, Validate(tr))

	twoActive := tr.shallow()
	twoActive.Branches[0].IsActive = true
	assert.ErrorIs(t, Validate(twoActive), ErrInvariant)

	dangling := tr.shallow()
	dangling.Nodes = tr.copyNodes(0)
	orphan := *tr.Nodes[ids["c"]]
	orphan.ParentID = "ghost"
	dangling.Nodes[orphan.ID] = &orphan
	assert.ErrorIs(t, Validate(dangling), ErrNodeNotFound)

	badCurrent := tr.shallow()
	badCurrent.CurrentNodeID = "ghost"
	assert.ErrorIs(t, Validate(badCurrent), ErrNodeNotFound)
}

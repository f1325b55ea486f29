package tree

import (
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/pkg/idgen"
)

func newTestEngine() *Engine {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	return NewEngine(
		WithIDGenerator(idgen.NewSequence("")),
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
	)
}

// demoTree builds the two-node "Demo" tree: Hi -> Bye.
func demoTree(t *testing.T, e *Engine) (*Tree, string, string) {
	t.Helper()
	tr := e.CreateTree("Demo", "", "")
	tr, first, err := e.AppendExchange(tr, "Hi", "Hello!")
	require.NoError(t, err)
	tr, second, err := e.AppendExchange(tr, "Bye", "Goodbye!")
	require.NoError(t, err)
	return tr, first, second
}

func activeCount(tr *Tree) int {
	n := 0
	for _, b := range tr.Branches {
		if b.IsActive {
			n++
		}
	}
	return n
}

func TestCreateTreeEmpty(t *testing.T) {
	e := newTestEngine()
	tr := e.CreateTree("Demo", "  ", "")

	assert.Equal(t, "Demo", tr.Name)
	assert.Empty(t, tr.Nodes)
	assert.Equal(t, "", tr.RootID)
	assert.Equal(t, "", tr.CurrentNodeID)
	require.Len(t, tr.Branches, 1)
	assert.Equal(t, DefaultBranchID, tr.Branches[0].ID)
	assert.True(t, tr.Branches[0].IsActive)
	assert.Equal(t, "", tr.Branches[0].RootNodeID)
	assert.Equal(t, "", tr.Branches[0].LeafNodeID)
	require.NoError(t, Validate(tr))
}

func TestCreateTreeWithFirstExchange(t *testing.T) {
	e := newTestEngine()
	tr := e.CreateTree("Starter", "What is Go?", "A programming language.")

	require.Len(t, tr.Nodes, 1)
	root, ok := tr.Root()
	require.True(t, ok)
	assert.True(t, root.IsRoot())
	assert.Equal(t, root.ID, tr.CurrentNodeID)
	assert.Equal(t, DefaultBranchID, root.BranchID)
	assert.Equal(t, root.ID, tr.Branches[0].RootNodeID)
	assert.Equal(t, root.ID, tr.Branches[0].LeafNodeID)
	require.NoError(t, Validate(tr))
}

func TestAppendExchangeBuildsChain(t *testing.T) {
	e := newTestEngine()
	empty := e.CreateTree("Demo", "", "")

	one, first, err := e.AppendExchange(empty, "Hi", "Hello!")
	require.NoError(t, err)
	require.Len(t, one.Nodes, 1)
	assert.Equal(t, first, one.RootID)
	assert.Equal(t, first, one.CurrentNodeID)
	assert.Equal(t, first, one.Branches[0].RootNodeID)
	assert.Equal(t, first, one.Branches[0].LeafNodeID)

	two, second, err := e.AppendExchange(one, "Bye", "Goodbye!")
	require.NoError(t, err)
	require.Len(t, two.Nodes, 2)
	assert.Equal(t, first, two.Nodes[second].ParentID)
	assert.Equal(t, []string{second}, two.Nodes[first].Children)
	assert.Equal(t, second, two.CurrentNodeID)
	assert.Equal(t, second, two.Branches[0].LeafNodeID)
	require.NoError(t, Validate(two))

	// earlier values are untouched
	assert.Empty(t, empty.Nodes)
	assert.Len(t, one.Nodes, 1)
	assert.Empty(t, one.Nodes[first].Children)
	assert.Equal(t, first, one.Branches[0].LeafNodeID)
}

func TestAppendExchangeRecordsMetadata(t *testing.T) {
	e := newTestEngine()
	tr := e.CreateTree("Meta", "q", "a")
	tr, id, err := e.AppendExchange(tr, "q2", "a2",
		WithTokensUsed(42), WithModel("gpt-4o-mini"), WithTemperature(0.3), WithTags("x", "y"))
	require.NoError(t, err)

	md := tr.Nodes[id].Metadata
	require.NotNil(t, md.TokensUsed)
	assert.Equal(t, 42, *md.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", md.Model)
	require.NotNil(t, md.Temperature)
	assert.InDelta(t, 0.3, *md.Temperature, 1e-9)
	assert.Equal(t, []string{"x", "y"}, md.Tags)
	assert.Equal(t, tr.Nodes[id].Timestamp, md.Timestamp)
}

func TestAppendExchangeUnknownCurrentNode(t *testing.T) {
	e := newTestEngine()
	tr, _, _ := demoTree(t, e)
	broken := *tr
	broken.CurrentNodeID = "node_missing"

	out, id, err := e.AppendExchange(&broken, "x", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.Equal(t, "", id)
	assert.Same(t, &broken, out)
	assert.Len(t, out.Nodes, 2)
}

func TestCreateBranchAtRoot(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)

	forked, branch, err := e.CreateBranch(tr, tr.RootID, "Alt")
	require.NoError(t, err)
	assert.Equal(t, "Alt", branch.Name)
	assert.Equal(t, first, branch.RootNodeID)
	assert.Equal(t, first, branch.LeafNodeID)
	assert.True(t, branch.IsActive)
	require.Len(t, forked.Branches, 2)
	assert.False(t, forked.Branches[0].IsActive)
	assert.True(t, forked.Branches[1].IsActive)
	assert.Equal(t, 1, activeCount(forked))
	assert.Equal(t, first, forked.CurrentNodeID)

	// nodes are shared, not copied
	assert.Len(t, forked.Nodes, 2)
	assert.Same(t, tr.Nodes[second], forked.Nodes[second])
	assert.Equal(t, []*Node{forked.Nodes[first], forked.Nodes[second]}, PathTo(forked, second))

	// appending after the fork hangs the node off the root
	next, third, err := e.AppendExchange(forked, "Other", "Path")
	require.NoError(t, err)
	assert.Equal(t, first, next.Nodes[third].ParentID)
	assert.Equal(t, []string{second, third}, next.Nodes[first].Children)
	assert.Equal(t, branch.ID, next.Nodes[third].BranchID)
	assert.Equal(t, third, next.Branches[1].LeafNodeID)
	assert.Equal(t, second, next.Branches[0].LeafNodeID)
	require.NoError(t, Validate(next))

	// the original value still has one active branch
	assert.Len(t, tr.Branches, 1)
	assert.True(t, tr.Branches[0].IsActive)
}

func TestCreateBranchErrors(t *testing.T) {
	e := newTestEngine()
	tr, first, _ := demoTree(t, e)

	_, _, err := e.CreateBranch(tr, "node_nope", "Alt")
	assert.True(t, errors.Is(err, ErrNodeNotFound))

	_, _, err = e.CreateBranch(tr, first, "   ")
	assert.True(t, errors.Is(err, ErrInvalidName))

	empty := e.CreateTree("Empty", "", "")
	_, _, err = e.CreateBranch(empty, "", "Alt")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestSelectBranchMovesToLeaf(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)
	tr, alt, err := e.CreateBranch(tr, first, "Alt")
	require.NoError(t, err)
	tr, third, err := e.AppendExchange(tr, "Other", "Path")
	require.NoError(t, err)

	back, err := e.SelectBranch(tr, DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, second, back.CurrentNodeID)
	assert.True(t, back.Branches[0].IsActive)
	assert.False(t, back.Branches[1].IsActive)

	again, err := e.SelectBranch(back, alt.ID)
	require.NoError(t, err)
	assert.Equal(t, third, again.CurrentNodeID)
	assert.Equal(t, 1, activeCount(again))

	_, err = e.SelectBranch(tr, "branch_missing")
	assert.True(t, errors.Is(err, ErrBranchNotFound))
}

func TestSwitchActiveBranchOnlyKeepsCurrentNode(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)
	tr, _, err := e.CreateBranch(tr, first, "Alt")
	require.NoError(t, err)
	tr, err = e.NavigateTo(tr, second)
	require.NoError(t, err)

	once, err := e.SwitchActiveBranchOnly(tr, DefaultBranchID)
	require.NoError(t, err)
	assert.Equal(t, second, once.CurrentNodeID)
	assert.True(t, once.Branches[0].IsActive)

	twice, err := e.SwitchActiveBranchOnly(once, DefaultBranchID)
	require.NoError(t, err)

	a, b := *once, *twice
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, a, b)

	_, err = e.SwitchActiveBranchOnly(tr, "nope")
	assert.True(t, errors.Is(err, ErrBranchNotFound))
}

func TestNavigateToLeavesActivation(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)
	tr, alt, err := e.CreateBranch(tr, first, "Alt")
	require.NoError(t, err)

	moved, err := e.NavigateTo(tr, second)
	require.NoError(t, err)
	assert.Equal(t, second, moved.CurrentNodeID)
	active, _ := moved.ActiveBranch()
	assert.Equal(t, alt.ID, active.ID)

	_, err = e.NavigateTo(tr, "")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestFocusActivatesAuthoringBranch(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)
	tr, alt, err := e.CreateBranch(tr, first, "Alt")
	require.NoError(t, err)

	focused, err := e.Focus(tr, second)
	require.NoError(t, err)
	assert.Equal(t, second, focused.CurrentNodeID)
	active, _ := focused.ActiveBranch()
	assert.Equal(t, DefaultBranchID, active.ID)

	b, ok := BranchOf(focused, second)
	require.True(t, ok)
	assert.Equal(t, DefaultBranchID, b.ID)

	// a node authored on the already active branch only moves the cursor
	tr2, third, err := e.AppendExchange(tr, "alt q", "alt a")
	require.NoError(t, err)
	same, err := e.Focus(tr2, third)
	require.NoError(t, err)
	active, _ = same.ActiveBranch()
	assert.Equal(t, alt.ID, active.ID)
}

func TestFocusKeepsActivationForUnknownBranch(t *testing.T) {
	e := newTestEngine()
	tr, first, _ := demoTree(t, e)
	tr, _, err := e.CreateBranch(tr, first, "Alt")
	require.NoError(t, err)
	tr, third, err := e.AppendExchange(tr, "alt q", "alt a")
	require.NoError(t, err)

	// drop the branch that authored third; main is first and inactive
	main := tr.Branches[0]
	main.IsActive = false
	side := Branch{ID: "side", Name: "Side", RootNodeID: tr.RootID, LeafNodeID: first, IsActive: true}
	orphaned := *tr
	orphaned.Branches = []Branch{main, side}

	focused, err := e.Focus(&orphaned, third)
	require.NoError(t, err)
	assert.Equal(t, third, focused.CurrentNodeID)
	active, ok := focused.ActiveBranch()
	require.True(t, ok)
	assert.Equal(t, "side", active.ID)
	assert.Equal(t, 1, activeCount(focused))
}

func TestRenameAndTouch(t *testing.T) {
	e := newTestEngine()
	tr := e.CreateTree("Old", "", "")
	renamed := e.Rename(tr, "New")
	assert.Equal(t, "New", renamed.Name)
	assert.Equal(t, "Old", tr.Name)
	assert.True(t, renamed.UpdatedAt.After(tr.UpdatedAt))

	touched := e.TouchUpdatedAt(renamed)
	assert.True(t, touched.UpdatedAt.After(renamed.UpdatedAt))
	assert.Equal(t, renamed.CreatedAt, touched.CreatedAt)
}

func TestSaveNodePositionsMerges(t *testing.T) {
	e := newTestEngine()
	tr, first, second := demoTree(t, e)

	withOne := e.SaveNodePositions(tr, map[string]Position{first: {X: 1, Y: 2}, "ghost": {X: 9, Y: 9}})
	assert.Equal(t, map[string]Position{first: {X: 1, Y: 2}}, withOne.NodePositions)
	assert.Nil(t, tr.NodePositions)

	withTwo := e.SaveNodePositions(withOne, map[string]Position{second: {X: 3, Y: 4}})
	assert.Len(t, withTwo.NodePositions, 2)
	assert.Len(t, withOne.NodePositions, 1)

	cleared := e.ClearNodePositions(withTwo)
	assert.Nil(t, cleared.NodePositions)

	vp := e.SetViewport(tr, Viewport{X: 10, Y: 20, Zoom: 1.5})
	require.NotNil(t, vp.Viewport)
	assert.Equal(t, 1.5, vp.Viewport.Zoom)
	assert.Nil(t, tr.Viewport)
}

// Random operation sequences must keep every invariant.
func TestInvariantsUnderRandomOperations(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	tr := e.CreateTree("Fuzz", "", "")

	pick := func() string {
		nodes := Walk(tr)
		return nodes[rng.Intn(len(nodes))].ID
	}
	for i := 0; i < 300; i++ {
		var err error
		switch op := rng.Intn(6); {
		case op <= 1 || tr.IsEmpty():
			tr, _, err = e.AppendExchange(tr, "u", "a")
		case op == 2:
			tr, _, err = e.CreateBranch(tr, pick(), "b")
		case op == 3:
			tr, err = e.SelectBranch(tr, tr.Branches[rng.Intn(len(tr.Branches))].ID)
		case op == 4:
			tr, err = e.SwitchActiveBranchOnly(tr, tr.Branches[rng.Intn(len(tr.Branches))].ID)
		default:
			tr, err = e.Focus(tr, pick())
		}
		require.NoError(t, err)
		require.NoError(t, Validate(tr), "step %d", i)
		require.Equal(t, 1, activeCount(tr))

		roots := 0
		for _, n := range tr.Nodes {
			if n.IsRoot() {
				roots++
				assert.Equal(t, tr.RootID, n.ID)
			}
		}
		require.Equal(t, 1, roots)
	}
}

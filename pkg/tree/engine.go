package tree

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"go_branch_chat/pkg/idgen"
)

// Engine applies mutations to trees. Every method takes a tree value and
// returns a new one; the input stays valid and unchanged. Engine holds no
// tree state, so one value can serve any number of trees, but callers must
// serialize mutations of the same tree themselves.
type Engine struct {
	ids idgen.Generator
	now func() time.Time
}

type EngineOption func(*Engine)

func WithIDGenerator(g idgen.Generator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		ids: idgen.Default,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ExchangeOption func(*Metadata)

func WithTokensUsed(n int) ExchangeOption {
	return func(m *Metadata) {
		m.TokensUsed = &n
	}
}

func WithModel(model string) ExchangeOption {
	return func(m *Metadata) {
		m.Model = model
	}
}

func WithTemperature(temperature float64) ExchangeOption {
	return func(m *Metadata) {
		m.Temperature = &temperature
	}
}

func WithTags(tags ...string) ExchangeOption {
	return func(m *Metadata) {
		m.Tags = append([]string(nil), tags...)
	}
}

func (e *Engine) newNode(parentID, userMessage, aiResponse, branchID string, opts []ExchangeOption) *Node {
	ts := e.now()
	md := Metadata{Timestamp: ts}
	for _, opt := range opts {
		opt(&md)
	}
	return &Node{
		ID:          e.ids.NewID(idgen.KindNode),
		ParentID:    parentID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		Timestamp:   ts,
		Children:    []string{},
		BranchID:    branchID,
		Metadata:    md,
	}
}

// CreateTree returns an empty tree when both messages are blank, otherwise a
// tree whose root node holds the first exchange.
func (e *Engine) CreateTree(name, firstUserMessage, firstAIResponse string) *Tree {
	now := e.now()
	t := &Tree{
		ID:        e.ids.NewID(idgen.KindTree),
		Name:      name,
		Nodes:     map[string]*Node{},
		CreatedAt: now,
		UpdatedAt: now,
		Branches: []Branch{{
			ID:       DefaultBranchID,
			Name:     DefaultBranchName,
			IsActive: true,
		}},
	}
	if strings.TrimSpace(firstUserMessage) == "" && strings.TrimSpace(firstAIResponse) == "" {
		return t
	}

	root := e.newNode("", firstUserMessage, firstAIResponse, DefaultBranchID, nil)
	t.Nodes[root.ID] = root
	t.RootID = root.ID
	t.CurrentNodeID = root.ID
	t.Branches[0].RootNodeID = root.ID
	t.Branches[0].LeafNodeID = root.ID
	return t
}

// AppendExchange adds a node after the current node and advances the active
// branch tip to it. On an empty tree the node becomes the root and every
// branch is anchored on it.
func (e *Engine) AppendExchange(t *Tree, userMessage, aiResponse string, opts ...ExchangeOption) (*Tree, string, error) {
	active, _ := t.ActiveBranch()

	if t.IsEmpty() {
		root := e.newNode("", userMessage, aiResponse, active.ID, opts)
		next := t.shallow()
		next.Nodes = map[string]*Node{root.ID: root}
		next.RootID = root.ID
		next.CurrentNodeID = root.ID
		for i := range next.Branches {
			next.Branches[i].RootNodeID = root.ID
			next.Branches[i].LeafNodeID = root.ID
		}
		next.UpdatedAt = e.now()
		return next, root.ID, nil
	}

	parent, ok := t.Node(t.CurrentNodeID)
	if !ok {
		return t, "", errors.Wrapf(ErrNodeNotFound, "current node %q", t.CurrentNodeID)
	}

	child := e.newNode(parent.ID, userMessage, aiResponse, active.ID, opts)
	next := t.shallow()
	next.Nodes = t.copyNodes(1)
	next.Nodes[parent.ID] = parent.withChild(child.ID)
	next.Nodes[child.ID] = child
	next.CurrentNodeID = child.ID
	for i := range next.Branches {
		if next.Branches[i].ID == active.ID {
			next.Branches[i].LeafNodeID = child.ID
		}
	}
	next.UpdatedAt = e.now()
	return next, child.ID, nil
}

// CreateBranch registers a new active branch whose tip is forkNodeID. No node
// is copied or moved; ancestors of the fork stay shared with older branches.
func (e *Engine) CreateBranch(t *Tree, forkNodeID, name string) (*Tree, Branch, error) {
	if _, ok := t.Node(forkNodeID); !ok {
		return t, Branch{}, errors.Wrapf(ErrNodeNotFound, "fork node %q", forkNodeID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return t, Branch{}, errors.Wrap(ErrInvalidName, "branch name is blank")
	}

	branch := Branch{
		ID:         e.ids.NewID(idgen.KindBranch),
		Name:       name,
		RootNodeID: t.RootID,
		LeafNodeID: forkNodeID,
		IsActive:   true,
	}
	next := t.shallow()
	for i := range next.Branches {
		next.Branches[i].IsActive = false
	}
	next.Branches = append(next.Branches, branch)
	next.CurrentNodeID = forkNodeID
	next.UpdatedAt = e.now()
	return next, branch, nil
}

func (e *Engine) activate(t *Tree, branchID string) (*Tree, Branch, error) {
	branch, ok := t.Branch(branchID)
	if !ok {
		return t, Branch{}, errors.Wrapf(ErrBranchNotFound, "branch %q", branchID)
	}
	next := t.shallow()
	for i := range next.Branches {
		next.Branches[i].IsActive = next.Branches[i].ID == branchID
	}
	branch.IsActive = true
	next.UpdatedAt = e.now()
	return next, branch, nil
}

// SelectBranch activates the branch and moves the current node to its tip.
func (e *Engine) SelectBranch(t *Tree, branchID string) (*Tree, error) {
	next, branch, err := e.activate(t, branchID)
	if err != nil {
		return t, err
	}
	next.CurrentNodeID = branch.LeafNodeID
	return next, nil
}

// SwitchActiveBranchOnly activates the branch without moving the current node.
func (e *Engine) SwitchActiveBranchOnly(t *Tree, branchID string) (*Tree, error) {
	next, _, err := e.activate(t, branchID)
	if err != nil {
		return t, err
	}
	return next, nil
}

// NavigateTo moves the current node. Branch activation is left to the caller.
func (e *Engine) NavigateTo(t *Tree, nodeID string) (*Tree, error) {
	if _, ok := t.Node(nodeID); !ok {
		return t, errors.Wrapf(ErrNodeNotFound, "node %q", nodeID)
	}
	next := t.shallow()
	next.CurrentNodeID = nodeID
	next.UpdatedAt = e.now()
	return next, nil
}

// BranchOf returns the branch that authored nodeID, falling back to the
// first branch when the node or its branch record is unknown.
func BranchOf(t *Tree, nodeID string) (Branch, bool) {
	if n, ok := t.Node(nodeID); ok {
		if b, ok := t.Branch(n.BranchID); ok {
			return b, true
		}
	}
	if len(t.Branches) > 0 {
		return t.Branches[0], true
	}
	return Branch{}, false
}

// Focus is what a click on a graph node does: activate the node's authoring
// branch if it is not active yet, then navigate to the node. A node whose
// branch record is gone keeps the current activation.
func (e *Engine) Focus(t *Tree, nodeID string) (*Tree, error) {
	n, ok := t.Node(nodeID)
	if !ok {
		return t, errors.Wrapf(ErrNodeNotFound, "node %q", nodeID)
	}
	next := t
	if b, ok := t.Branch(n.BranchID); ok && !b.IsActive {
		switched, err := e.SwitchActiveBranchOnly(t, b.ID)
		if err != nil {
			return t, err
		}
		next = switched
	}
	return e.NavigateTo(next, nodeID)
}

func (e *Engine) Rename(t *Tree, name string) *Tree {
	next := t.shallow()
	next.Name = name
	next.UpdatedAt = e.now()
	return next
}

func (e *Engine) TouchUpdatedAt(t *Tree) *Tree {
	next := t.shallow()
	next.UpdatedAt = e.now()
	return next
}

// SetViewport records the last pan/zoom of the visualization.
func (e *Engine) SetViewport(t *Tree, vp Viewport) *Tree {
	next := t.shallow()
	next.Viewport = &vp
	return next
}

// SaveNodePositions merges positions into the sticky layout overrides.
// Positions for ids that are not nodes of the tree are dropped.
func (e *Engine) SaveNodePositions(t *Tree, positions map[string]Position) *Tree {
	next := t.shallow()
	merged := make(map[string]Position, len(t.NodePositions)+len(positions))
	for id, p := range t.NodePositions {
		merged[id] = p
	}
	for id, p := range positions {
		if _, ok := t.Nodes[id]; ok {
			merged[id] = p
		}
	}
	next.NodePositions = merged
	next.UpdatedAt = e.now()
	return next
}

func (e *Engine) ClearNodePositions(t *Tree) *Tree {
	next := t.shallow()
	next.NodePositions = nil
	next.UpdatedAt = e.now()
	return next
}

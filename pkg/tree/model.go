package tree

import "time"

const (
	DefaultBranchID   = "main"
	DefaultBranchName = "Main"
)

// Metadata is informational only; it never affects structure.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	TokensUsed  *int      `json:"tokensUsed,omitempty"`
	Model       string    `json:"model,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// Node is one user/assistant exchange. An empty ParentID marks the root.
type Node struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parentId"`
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	Timestamp   time.Time `json:"timestamp"`
	Children    []string  `json:"children"`
	BranchID    string    `json:"branchId"`
	Metadata    Metadata  `json:"metadata"`
}

func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// withChild returns a copy of n with childID appended. The children slice is
// freshly allocated so the original node stays untouched.
func (n *Node) withChild(childID string) *Node {
	cp := *n
	cp.Children = make([]string, len(n.Children), len(n.Children)+1)
	copy(cp.Children, n.Children)
	cp.Children = append(cp.Children, childID)
	return &cp
}

// Branch is a named tip pointer over the shared node graph. It does not own nodes.
type Branch struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	RootNodeID string `json:"rootNodeId"`
	LeafNodeID string `json:"leafNodeId"`
	IsActive   bool   `json:"isActive"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Tree is the aggregate root. Values returned by Engine are never mutated
// afterwards, and neither are the nodes they reference; treat them as read-only.
type Tree struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	RootID        string              `json:"rootId"`
	Nodes         map[string]*Node    `json:"nodes"`
	CurrentNodeID string              `json:"currentNodeId"`
	Branches      []Branch            `json:"branches"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Viewport      *Viewport           `json:"viewport,omitempty"`
	NodePositions map[string]Position `json:"nodePositions,omitempty"`
}

func (t *Tree) Node(id string) (*Node, bool) {
	if id == "" {
		return nil, false
	}
	n, ok := t.Nodes[id]
	return n, ok
}

func (t *Tree) Root() (*Node, bool) {
	return t.Node(t.RootID)
}

func (t *Tree) Branch(id string) (Branch, bool) {
	for _, b := range t.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return Branch{}, false
}

// ActiveBranch returns the active branch, or the first branch when none is
// flagged (which only happens for hand-built trees).
func (t *Tree) ActiveBranch() (Branch, bool) {
	for _, b := range t.Branches {
		if b.IsActive {
			return b, true
		}
	}
	if len(t.Branches) > 0 {
		return t.Branches[0], true
	}
	return Branch{}, false
}

func (t *Tree) IsEmpty() bool {
	return len(t.Nodes) == 0
}

// shallow copies the tree header and the branch slice. Nodes and positions
// are shared until a mutation copies them.
func (t *Tree) shallow() *Tree {
	cp := *t
	cp.Branches = append([]Branch(nil), t.Branches...)
	if t.Viewport != nil {
		vp := *t.Viewport
		cp.Viewport = &vp
	}
	return &cp
}

func (t *Tree) copyNodes(extra int) map[string]*Node {
	nodes := make(map[string]*Node, len(t.Nodes)+extra)
	for id, n := range t.Nodes {
		nodes[id] = n
	}
	return nodes
}

// Package layout positions conversation nodes for a 2-D graph view.
//
// Nodes are grouped by the branch that authored them, stacked by depth, and
// groups are laid out left to right so they never overlap. Positions the user
// has dragged (tree.NodePositions) or that a previous pass produced win over
// computed ones, so re-rendering never moves a node the user placed.
package layout

import (
	"fmt"
	"math"
	"sort"

	"go_branch_chat/pkg/tree"
)

type Config struct {
	VerticalSpacing   float64
	HorizontalSpacing float64
	NodeWidth         float64
}

func DefaultConfig() Config {
	return Config{
		VerticalSpacing:   180,
		HorizontalSpacing: 120,
		NodeWidth:         280,
	}
}

const (
	userPreviewLen     = 100
	responsePreviewLen = 150
)

type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	OnActivePath bool   `json:"onActivePath"`
}

type NodeView struct {
	ID              string        `json:"id"`
	Position        tree.Position `json:"position"`
	BranchID        string        `json:"branchId"`
	Depth           int           `json:"depth"`
	ChildCount      int           `json:"childCount"`
	IsRoot          bool          `json:"isRoot"`
	IsCurrent       bool          `json:"isCurrent"`
	OnActivePath    bool          `json:"onActivePath"`
	UserPreview     string        `json:"userPreview"`
	ResponsePreview string        `json:"responsePreview"`
}

type Result struct {
	Positions map[string]tree.Position `json:"positions"`
	Nodes     []NodeView               `json:"nodes"`
	Edges     []Edge                   `json:"edges"`
}

type options struct {
	cfg      Config
	previous map[string]tree.Position
}

type Option func(*options)

func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithPrevious supplies positions from an earlier pass. They are used for
// nodes without a recorded position on the tree itself.
func WithPrevious(prev map[string]tree.Position) Option {
	return func(o *options) {
		o.previous = prev
	}
}

// Compute lays out every node of t. The result depends only on t and the
// options, never on map iteration order.
func Compute(t *tree.Tree, opts ...Option) *Result {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	order := tree.Walk(t)
	depths := make(map[string]int, len(order))
	groups := make(map[string][]*tree.Node)
	for _, n := range order {
		depths[n.ID] = tree.NodeDepth(t, n.ID)
		groups[n.BranchID] = append(groups[n.BranchID], n)
	}

	positions := make(map[string]tree.Position, len(order))
	offsetX := 0.0
	for _, branchID := range groupOrder(t, groups) {
		width := placeGroup(groups[branchID], depths, offsetX, o, t.NodePositions, positions)
		offsetX += width + o.cfg.HorizontalSpacing*0.5
	}

	onPath := make(map[string]struct{})
	for _, n := range tree.CurrentPath(t) {
		onPath[n.ID] = struct{}{}
	}

	res := &Result{
		Positions: positions,
		Nodes:     make([]NodeView, 0, len(order)),
		Edges:     make([]Edge, 0, len(order)),
	}
	for _, n := range order {
		_, nodeOnPath := onPath[n.ID]
		res.Nodes = append(res.Nodes, NodeView{
			ID:              n.ID,
			Position:        positions[n.ID],
			BranchID:        n.BranchID,
			Depth:           depths[n.ID],
			ChildCount:      len(n.Children),
			IsRoot:          n.IsRoot(),
			IsCurrent:       n.ID == t.CurrentNodeID,
			OnActivePath:    nodeOnPath,
			UserPreview:     truncate(n.UserMessage, userPreviewLen),
			ResponsePreview: truncate(n.AIResponse, responsePreviewLen),
		})
		if n.IsRoot() {
			continue
		}
		if _, ok := t.Nodes[n.ParentID]; !ok {
			continue
		}
		_, parentOnPath := onPath[n.ParentID]
		res.Edges = append(res.Edges, Edge{
			ID:           fmt.Sprintf("%s-%s", n.ParentID, n.ID),
			Source:       n.ParentID,
			Target:       n.ID,
			OnActivePath: nodeOnPath && parentOnPath,
		})
	}
	return res
}

// groupOrder puts the first-created branch first and the rest by id.
func groupOrder(t *tree.Tree, groups map[string][]*tree.Node) []string {
	first := ""
	if len(t.Branches) > 0 {
		first = t.Branches[0].ID
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i] == first {
			return ids[j] != first
		}
		if ids[j] == first {
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// placeGroup writes positions for one branch group centred on offsetX and
// returns the horizontal room the group needs.
func placeGroup(nodes []*tree.Node, depths map[string]int, offsetX float64, o options,
	recorded map[string]tree.Position, out map[string]tree.Position) float64 {
	buckets := make(map[int][]*tree.Node)
	maxDepth, widest := 0, 1
	for _, n := range nodes {
		d := depths[n.ID]
		buckets[d] = append(buckets[d], n)
		if d > maxDepth {
			maxDepth = d
		}
		if len(buckets[d]) > widest {
			widest = len(buckets[d])
		}
	}

	cfg := o.cfg
	for d := 0; d <= maxDepth; d++ {
		bucket := buckets[d]
		spacing := 0.0
		if len(bucket) > 1 {
			spacing = cfg.HorizontalSpacing / 2
		}
		startX := offsetX - spacing*float64(len(bucket)-1)/2
		for i, n := range bucket {
			if p, ok := recorded[n.ID]; ok {
				out[n.ID] = p
				continue
			}
			if p, ok := o.previous[n.ID]; ok {
				out[n.ID] = p
				continue
			}
			out[n.ID] = tree.Position{
				X: startX + float64(i)*spacing,
				Y: float64(d) * cfg.VerticalSpacing,
			}
		}
	}
	return math.Max(cfg.NodeWidth, cfg.HorizontalSpacing*float64(widest))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

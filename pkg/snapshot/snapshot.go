// Package snapshot converts trees to and from their plain, storable form.
//
// Node and position maps become insertion-ordered JSON objects and dates
// become RFC 3339 strings, so a snapshot written by one process reads back
// identically in another.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"go_branch_chat/pkg/tree"
)

var (
	ErrDanglingReference = errors.New("dangling node reference")
	ErrMalformedDate     = errors.New("malformed date")
)

const dateLayout = time.RFC3339Nano

type MetadataRecord struct {
	Timestamp   string   `json:"timestamp"`
	TokensUsed  *int     `json:"tokensUsed,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type NodeRecord struct {
	ID          string         `json:"id"`
	ParentID    *string        `json:"parentId"`
	UserMessage string         `json:"userMessage"`
	AIResponse  string         `json:"aiResponse"`
	Timestamp   string         `json:"timestamp"`
	Children    []string       `json:"children"`
	BranchID    string         `json:"branchId"`
	Metadata    MetadataRecord `json:"metadata"`
}

type Snapshot struct {
	ID            string                                         `json:"id"`
	Name          string                                         `json:"name"`
	RootID        string                                         `json:"rootId"`
	CurrentNodeID string                                         `json:"currentNodeId"`
	CreatedAt     string                                         `json:"createdAt"`
	UpdatedAt     string                                         `json:"updatedAt"`
	Branches      []tree.Branch                                  `json:"branches"`
	Nodes         *orderedmap.OrderedMap[string, NodeRecord]     `json:"nodes"`
	NodePositions *orderedmap.OrderedMap[string, tree.Position] `json:"nodePositions,omitempty"`
	Viewport      *tree.Viewport                                 `json:"treeViewport,omitempty"`
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrMalformedDate, "%s %q", field, s)
	}
	return t.UTC(), nil
}

// ToSnapshot never fails; nodes are emitted in breadth-first creation order.
func ToSnapshot(t *tree.Tree) *Snapshot {
	s := &Snapshot{
		ID:            t.ID,
		Name:          t.Name,
		RootID:        t.RootID,
		CurrentNodeID: t.CurrentNodeID,
		CreatedAt:     formatDate(t.CreatedAt),
		UpdatedAt:     formatDate(t.UpdatedAt),
		Branches:      append([]tree.Branch{}, t.Branches...),
		Nodes:         orderedmap.New[string, NodeRecord](),
	}
	if t.Viewport != nil {
		vp := *t.Viewport
		s.Viewport = &vp
	}

	order := tree.Walk(t)
	for _, n := range order {
		s.Nodes.Set(n.ID, toRecord(n))
	}

	if t.NodePositions != nil {
		s.NodePositions = orderedmap.New[string, tree.Position]()
		for _, n := range order {
			if p, ok := t.NodePositions[n.ID]; ok {
				s.NodePositions.Set(n.ID, p)
			}
		}
	}
	return s
}

func toRecord(n *tree.Node) NodeRecord {
	rec := NodeRecord{
		ID:          n.ID,
		UserMessage: n.UserMessage,
		AIResponse:  n.AIResponse,
		Timestamp:   formatDate(n.Timestamp),
		Children:    append([]string{}, n.Children...),
		BranchID:    n.BranchID,
		Metadata: MetadataRecord{
			Timestamp:   formatDate(n.Metadata.Timestamp),
			TokensUsed:  n.Metadata.TokensUsed,
			Model:       n.Metadata.Model,
			Temperature: n.Metadata.Temperature,
			Tags:        append([]string(nil), n.Metadata.Tags...),
		},
	}
	if !n.IsRoot() {
		parent := n.ParentID
		rec.ParentID = &parent
	}
	return rec
}

// FromSnapshot rebuilds the tree, re-parsing every date. It fails when a date
// is malformed or when any id reference points outside the node set. It does
// not check the remaining invariants; run tree.Validate for that.
func FromSnapshot(s *Snapshot) (*tree.Tree, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	createdAt, err := parseDate("createdAt", s.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseDate("updatedAt", s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t := &tree.Tree{
		ID:            s.ID,
		Name:          s.Name,
		RootID:        s.RootID,
		CurrentNodeID: s.CurrentNodeID,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		Branches:      append([]tree.Branch{}, s.Branches...),
		Nodes:         map[string]*tree.Node{},
	}
	if s.Viewport != nil {
		vp := *s.Viewport
		t.Viewport = &vp
	}

	if s.Nodes != nil {
		for pair := s.Nodes.Oldest(); pair != nil; pair = pair.Next() {
			n, err := fromRecord(pair.Key, pair.Value)
			if err != nil {
				return nil, err
			}
			t.Nodes[pair.Key] = n
		}
	}

	if s.NodePositions != nil {
		t.NodePositions = make(map[string]tree.Position, s.NodePositions.Len())
		for pair := s.NodePositions.Oldest(); pair != nil; pair = pair.Next() {
			t.NodePositions[pair.Key] = pair.Value
		}
	}

	if err := checkReferences(t); err != nil {
		return nil, err
	}
	return t, nil
}

func fromRecord(key string, rec NodeRecord) (*tree.Node, error) {
	if rec.ID != "" && rec.ID != key {
		return nil, errors.Wrapf(ErrDanglingReference, "node keyed %q carries id %q", key, rec.ID)
	}
	ts, err := parseDate("timestamp of "+key, rec.Timestamp)
	if err != nil {
		return nil, err
	}
	mdTS, err := parseDate("metadata.timestamp of "+key, rec.Metadata.Timestamp)
	if err != nil {
		return nil, err
	}
	n := &tree.Node{
		ID:          key,
		UserMessage: rec.UserMessage,
		AIResponse:  rec.AIResponse,
		Timestamp:   ts,
		Children:    append([]string{}, rec.Children...),
		BranchID:    rec.BranchID,
		Metadata: tree.Metadata{
			Timestamp:   mdTS,
			TokensUsed:  rec.Metadata.TokensUsed,
			Model:       rec.Metadata.Model,
			Temperature: rec.Metadata.Temperature,
			Tags:        append([]string(nil), rec.Metadata.Tags...),
		},
	}
	if rec.ParentID != nil {
		n.ParentID = *rec.ParentID
	}
	return n, nil
}

func checkReferences(t *tree.Tree) error {
	for id, n := range t.Nodes {
		if n.ParentID != "" {
			if _, ok := t.Nodes[n.ParentID]; !ok {
				return errors.Wrapf(ErrDanglingReference, "parent %q of node %q", n.ParentID, id)
			}
		}
		for _, c := range n.Children {
			if _, ok := t.Nodes[c]; !ok {
				return errors.Wrapf(ErrDanglingReference, "child %q of node %q", c, id)
			}
		}
	}
	refs := []struct{ what, id string }{
		{"rootId", t.RootID},
		{"currentNodeId", t.CurrentNodeID},
	}
	for _, b := range t.Branches {
		refs = append(refs,
			struct{ what, id string }{"rootNodeId of branch " + b.ID, b.RootNodeID},
			struct{ what, id string }{"leafNodeId of branch " + b.ID, b.LeafNodeID},
		)
	}
	for _, ref := range refs {
		if ref.id == "" {
			continue
		}
		if _, ok := t.Nodes[ref.id]; !ok {
			return errors.Wrapf(ErrDanglingReference, "%s %q", ref.what, ref.id)
		}
	}
	return nil
}

func Marshal(t *tree.Tree) ([]byte, error) {
	return json.Marshal(ToSnapshot(t))
}

func Unmarshal(data []byte) (*tree.Tree, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return FromSnapshot(&s)
}

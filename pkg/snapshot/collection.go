package snapshot

import "go_branch_chat/pkg/tree"

// Collection is the persisted form of every tree a user owns.
type Collection struct {
	Trees         []*Snapshot `json:"trees"`
	CurrentTreeID string      `json:"currentTreeId,omitempty"`
}

type DecodeFailure struct {
	TreeID string
	Err    error
}

func NewCollection(trees []*tree.Tree, currentTreeID string) *Collection {
	c := &Collection{CurrentTreeID: currentTreeID, Trees: make([]*Snapshot, 0, len(trees))}
	for _, t := range trees {
		c.Trees = append(c.Trees, ToSnapshot(t))
	}
	return c
}

// Decode returns the trees that decode and validate, plus one failure per
// tree that does not. A broken tree never prevents loading the others.
func (c *Collection) Decode() ([]*tree.Tree, []DecodeFailure) {
	var (
		trees    []*tree.Tree
		failures []DecodeFailure
	)
	for _, s := range c.Trees {
		if s == nil {
			continue
		}
		t, err := FromSnapshot(s)
		if err == nil {
			err = tree.Validate(t)
		}
		if err != nil {
			failures = append(failures, DecodeFailure{TreeID: s.ID, Err: err})
			continue
		}
		trees = append(trees, t)
	}
	return trees, failures
}

package tree

import "github.com/pkg/errors"

// Validate checks the structural invariants of t. Trees built only through
// Engine always pass; use it on trees decoded from untrusted storage.
func Validate(t *Tree) error {
	if t == nil {
		return errors.Wrap(ErrInvariant, "nil tree")
	}

	active := 0
	for _, b := range t.Branches {
		if b.IsActive {
			active++
		}
	}
	if active != 1 {
		return errors.Wrapf(ErrInvariant, "%d active branches", active)
	}

	if len(t.Nodes) == 0 {
		if t.RootID != "" || t.CurrentNodeID != "" {
			return errors.Wrap(ErrInvariant, "empty tree references nodes")
		}
		return nil
	}

	roots := 0
	for id, n := range t.Nodes {
		if n.ID != id {
			return errors.Wrapf(ErrInvariant, "node keyed %q has id %q", id, n.ID)
		}
		if n.IsRoot() {
			roots++
			if id != t.RootID {
				return errors.Wrapf(ErrInvariant, "root %q is not the tree root %q", id, t.RootID)
			}
			continue
		}
		parent, ok := t.Nodes[n.ParentID]
		if !ok {
			return errors.Wrapf(ErrNodeNotFound, "parent %q of node %q", n.ParentID, id)
		}
		listed := 0
		for _, c := range parent.Children {
			if c == id {
				listed++
			}
		}
		if listed != 1 {
			return errors.Wrapf(ErrInvariant, "node %q listed %d times under %q", id, listed, parent.ID)
		}
	}
	if roots != 1 {
		return errors.Wrapf(ErrInvariant, "%d root nodes", roots)
	}

	for id, n := range t.Nodes {
		for _, c := range n.Children {
			child, ok := t.Nodes[c]
			if !ok {
				return errors.Wrapf(ErrNodeNotFound, "child %q of node %q", c, id)
			}
			if child.ParentID != id {
				return errors.Wrapf(ErrInvariant, "child %q of %q points at parent %q", c, id, child.ParentID)
			}
		}
	}

	// a parent cycle leaves its members unreachable from the root
	if countReachable(t) != len(t.Nodes) {
		return errors.Wrap(ErrInvariant, "nodes unreachable from root")
	}

	if _, ok := t.Nodes[t.CurrentNodeID]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "current node %q", t.CurrentNodeID)
	}
	return nil
}

func countReachable(t *Tree) int {
	root, ok := t.Root()
	if !ok {
		return 0
	}
	seen := map[string]struct{}{root.ID: {}}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.Children {
			if _, ok := seen[c]; ok {
				continue
			}
			if child, ok := t.Nodes[c]; ok {
				seen[c] = struct{}{}
				stack = append(stack, child)
			}
		}
	}
	return len(seen)
}

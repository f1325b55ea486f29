package tree

import "sort"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PathTo walks parent links from nodeID up to the root and returns the nodes
// ordered root first. An unknown id yields whatever resolved before the walk
// stopped, possibly nothing.
func PathTo(t *Tree, nodeID string) []*Node {
	var path []*Node
	seen := make(map[string]struct{})
	for id := nodeID; id != ""; {
		n, ok := t.Nodes[id]
		if !ok {
			break
		}
		if _, loop := seen[id]; loop {
			break
		}
		seen[id] = struct{}{}
		path = append(path, n)
		id = n.ParentID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func CurrentPath(t *Tree) []*Node {
	return PathTo(t, t.CurrentNodeID)
}

// History flattens the path to nodeID into alternating user/assistant turns.
func History(t *Tree, nodeID string) []Message {
	path := PathTo(t, nodeID)
	msgs := make([]Message, 0, len(path)*2)
	for _, n := range path {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: n.UserMessage},
			Message{Role: RoleAssistant, Content: n.AIResponse},
		)
	}
	return msgs
}

// Walk lists nodes breadth-first from the root, children in creation order.
// Nodes not reachable from the root are appended sorted by id.
func Walk(t *Tree) []*Node {
	out := make([]*Node, 0, len(t.Nodes))
	visited := make(map[string]struct{}, len(t.Nodes))
	if root, ok := t.Root(); ok {
		queue := []*Node{root}
		visited[root.ID] = struct{}{}
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			out = append(out, curr)
			for _, childID := range curr.Children {
				if _, done := visited[childID]; done {
					continue
				}
				child, ok := t.Nodes[childID]
				if !ok {
					continue
				}
				visited[childID] = struct{}{}
				queue = append(queue, child)
			}
		}
	}
	if len(out) == len(t.Nodes) {
		return out
	}
	var rest []*Node
	for id, n := range t.Nodes {
		if _, ok := visited[id]; !ok {
			rest = append(rest, n)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return append(out, rest...)
}

// LeafNodes returns the nodes without children, in Walk order.
func LeafNodes(t *Tree) []*Node {
	var leaves []*Node
	for _, n := range Walk(t) {
		if len(n.Children) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Depth is the longest root-to-node distance following children links. An
// empty tree and a single root both have depth 0.
func Depth(t *Tree) int {
	root, ok := t.Root()
	if !ok {
		return 0
	}
	type item struct {
		id    string
		depth int
	}
	maxDepth := 0
	visited := map[string]struct{}{root.ID: {}}
	queue := []item{{root.ID, 0}}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if curr.depth > maxDepth {
			maxDepth = curr.depth
		}
		n := t.Nodes[curr.id]
		for _, childID := range n.Children {
			if _, ok := t.Nodes[childID]; !ok {
				continue
			}
			if _, ok := visited[childID]; ok {
				continue
			}
			visited[childID] = struct{}{}
			queue = append(queue, item{childID, curr.depth + 1})
		}
	}
	return maxDepth
}

// NodeDepth counts parent hops from nodeID to the root; -1 for unknown ids.
func NodeDepth(t *Tree, nodeID string) int {
	return len(PathTo(t, nodeID)) - 1
}

package models

import "time"

type TreeEventType string

const (
	EventTreeCreated   TreeEventType = "tree.created"
	EventTreeUpdated   TreeEventType = "tree.updated"
	EventTreeDeleted   TreeEventType = "tree.deleted"
	EventNodeAppended  TreeEventType = "node.appended"
	EventBranchCreated TreeEventType = "branch.created"
	EventBranchChanged TreeEventType = "branch.changed"
	EventNavigated     TreeEventType = "navigated"
	EventLayoutChanged TreeEventType = "layout.changed"
)

// TreeEvent tells subscribers which tree changed; clients refetch what they need.
type TreeEvent struct {
	Type           TreeEventType `json:"type"`
	TreeID         string        `json:"tree_id"`
	NodeID         string        `json:"node_id,omitempty"`
	BranchID       string        `json:"branch_id,omitempty"`
	CurrentNodeID  string        `json:"current_node_id,omitempty"`
	ActiveBranchID string        `json:"active_branch_id,omitempty"`
	NodeCount      int           `json:"node_count"`
	Timestamp      time.Time     `json:"timestamp"`
}

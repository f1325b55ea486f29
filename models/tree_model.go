package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
)

// TreeRecord is one persisted conversation tree. The full tree lives in
// Snapshot; the other columns are denormalized for listing.
type TreeRecord struct {
	ID          string         `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	Name        string         `gorm:"column:name;type:varchar(512);not null" json:"name"`
	NodeCount   int            `gorm:"column:node_count;type:int;default:0" json:"node_count"`
	BranchNames pq.StringArray `gorm:"column:branch_names;type:text[]" json:"branch_names"`
	Snapshot    datatypes.JSON `gorm:"column:snapshot;type:jsonb;not null" json:"-"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamp;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamp;autoUpdateTime:false;index:idx_tree_updated_at" json:"updated_at"`
}

func (TreeRecord) TableName() string {
	return "conversation_trees"
}

func (r *TreeRecord) BeforeCreate(tx *gorm.DB) error {
	if r.BranchNames == nil {
		r.BranchNames = pq.StringArray{}
	}
	return nil
}

// NewTreeRecord encodes t into its storage row.
func NewTreeRecord(t *tree.Tree) (*TreeRecord, error) {
	data, err := snapshot.Marshal(t)
	if err != nil {
		return nil, err
	}
	summary := SummaryOf(t)
	return &TreeRecord{
		ID:          t.ID,
		Name:        t.Name,
		NodeCount:   summary.NodeCount,
		BranchNames: pq.StringArray(summary.BranchNames),
		Snapshot:    datatypes.JSON(data),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

// Tree decodes and validates the stored snapshot.
func (r *TreeRecord) Tree() (*tree.Tree, error) {
	t, err := snapshot.Unmarshal(r.Snapshot)
	if err != nil {
		return nil, err
	}
	if err := tree.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TreeRecord) Summary() TreeSummary {
	return TreeSummary{
		ID:          r.ID,
		Name:        r.Name,
		NodeCount:   r.NodeCount,
		BranchNames: []string(r.BranchNames),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func SummaryOf(t *tree.Tree) TreeSummary {
	names := make([]string, 0, len(t.Branches))
	for _, b := range t.Branches {
		names = append(names, b.Name)
	}
	return TreeSummary{
		ID:          t.ID,
		Name:        t.Name,
		NodeCount:   len(t.Nodes),
		BranchNames: names,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type TreeSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NodeCount   int       `json:"node_count"`
	BranchNames []string  `json:"branch_names"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TreeStats struct {
	TreeID        string         `json:"tree_id"`
	NodeCount     int            `json:"node_count"`
	BranchCount   int            `json:"branch_count"`
	LeafCount     int            `json:"leaf_count"`
	Depth         int            `json:"depth"`
	TokensUsed    int            `json:"tokens_used"`
	NodesByBranch map[string]int `json:"nodes_by_branch"`
}

package repository

import (
	"context"
	"errors"

	"go_branch_chat/models"
)

var ErrTreeNotFound = errors.New("tree not found")

// TreeRepository persists whole trees. Save is an upsert keyed on the tree id.
type TreeRepository interface {
	Save(ctx context.Context, record *models.TreeRecord) error
	GetByID(ctx context.Context, treeID string) (*models.TreeRecord, error)
	// List returns records without their snapshot, most recently updated first.
	List(ctx context.Context) ([]*models.TreeRecord, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, treeID string) error
	Count(ctx context.Context) (int64, error)
}

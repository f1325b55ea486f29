package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

const summaryColumns = "id, name, node_count, branch_names, created_at, updated_at"

type treeRepository struct {
	db *gorm.DB
}

func NewTreeRepository(db *gorm.DB) TreeRepository {
	return &treeRepository{db: db}
}

func (r *treeRepository) Save(ctx context.Context, record *models.TreeRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record).Error
	if err != nil {
		logging.Logger.Error("save tree failed", "tree_id", record.ID, "error", err)
		return err
	}
	return nil
}

func (r *treeRepository) GetByID(ctx context.Context, treeID string) (*models.TreeRecord, error) {
	var rec models.TreeRecord
	err := r.db.WithContext(ctx).Where("id = ?", treeID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTreeNotFound
	}
	if err != nil {
		logging.Logger.Error("get tree failed", "tree_id", treeID, "error", err)
		return nil, err
	}
	return &rec, nil
}

func (r *treeRepository) List(ctx context.Context) ([]*models.TreeRecord, error) {
	var res []*models.TreeRecord
	err := r.db.WithContext(ctx).
		Select(summaryColumns).
		Order("updated_at DESC").
		Find(&res).Error
	if err != nil {
		logging.Logger.Error("list trees failed", "error", err)
		return nil, err
	}
	return res, nil
}

func (r *treeRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.TreeRecord{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		logging.Logger.Error("list tree ids failed", "error", err)
		return nil, err
	}
	return ids, nil
}

func (r *treeRepository) Delete(ctx context.Context, treeID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", treeID).Delete(&models.TreeRecord{})
	if res.Error != nil {
		logging.Logger.Error("delete tree failed", "tree_id", treeID, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTreeNotFound
	}
	return nil
}

func (r *treeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TreeRecord{}).Count(&n).Error
	return n, err
}

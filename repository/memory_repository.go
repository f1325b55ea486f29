package repository

import (
	"context"
	"sort"

	"github.com/patrickmn/go-cache"

	"go_branch_chat/models"
)

// memoryRepository keeps records in a non-expiring go-cache. It backs
// STORE_TYPE=memory and the service tests.
type memoryRepository struct {
	store *cache.Cache
}

func NewMemoryTreeRepository() TreeRepository {
	return &memoryRepository{store: cache.New(cache.NoExpiration, 0)}
}

func copyRecord(r *models.TreeRecord) *models.TreeRecord {
	cp := *r
	cp.BranchNames = append(cp.BranchNames[:0:0], r.BranchNames...)
	cp.Snapshot = append(cp.Snapshot[:0:0], r.Snapshot...)
	return &cp
}

func (r *memoryRepository) Save(_ context.Context, record *models.TreeRecord) error {
	r.store.Set(record.ID, copyRecord(record), cache.NoExpiration)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, treeID string) (*models.TreeRecord, error) {
	v, ok := r.store.Get(treeID)
	if !ok {
		return nil, ErrTreeNotFound
	}
	return copyRecord(v.(*models.TreeRecord)), nil
}

func (r *memoryRepository) all() []*models.TreeRecord {
	items := r.store.Items()
	res := make([]*models.TreeRecord, 0, len(items))
	for _, item := range items {
		res = append(res, copyRecord(item.Object.(*models.TreeRecord)))
	}
	return res
}

func (r *memoryRepository) List(_ context.Context) ([]*models.TreeRecord, error) {
	res := r.all()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].UpdatedAt.Equal(res[j].UpdatedAt) {
			return res[i].UpdatedAt.After(res[j].UpdatedAt)
		}
		return res[i].ID < res[j].ID
	})
	for _, rec := range res {
		rec.Snapshot = nil
	}
	return res, nil
}

func (r *memoryRepository) ListIDs(_ context.Context) ([]string, error) {
	res := r.all()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	ids := make([]string, len(res))
	for i, rec := range res {
		ids[i] = rec.ID
	}
	return ids, nil
}

func (r *memoryRepository) Delete(_ context.Context, treeID string) error {
	if _, ok := r.store.Get(treeID); !ok {
		return ErrTreeNotFound
	}
	r.store.Delete(treeID)
	return nil
}

func (r *memoryRepository) Count(_ context.Context) (int64, error) {
	return int64(r.store.ItemCount()), nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/platform/storage"
	"go_branch_chat/utils"
)

const jsonContentType = "application/json"

// ObjectStore is the part of platform/storage the export flow needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	FileExists(ctx context.Context, key string) (bool, error)
}

// ExportService moves snapshots between the tree store and object storage.
// With a nil store every operation reports ErrStorageDisabled.
type ExportService struct {
	store   ObjectStore
	trees   *TreeService
	exports *utils.ExportKeyGenerator
	backups *utils.ExportKeyGenerator
	urlTTL  time.Duration
	log     *slog.Logger
}

func NewExportService(store ObjectStore, trees *TreeService, urlTTL time.Duration) *ExportService {
	return &ExportService{
		store:   store,
		trees:   trees,
		exports: utils.NewExportKeyGenerator("exports"),
		backups: utils.NewExportKeyGenerator("backups"),
		urlTTL:  urlTTL,
		log:     logging.Component("export_service"),
	}
}

func (s *ExportService) Enabled() bool {
	return s.store != nil
}

// fetch reports a missing key as storage.ErrObjectNotFound before reading it.
func (s *ExportService) fetch(ctx context.Context, key string) ([]byte, error) {
	ok, err := s.store.FileExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if !ok {
		return nil, errors.Wrapf(storage.ErrObjectNotFound, "%s", key)
	}
	return s.store.GetObject(ctx, key)
}

func (s *ExportService) upload(ctx context.Context, key string, data []byte, count int) (*models.ExportRes, error) {
	if err := s.store.PutObject(ctx, key, data, jsonContentType); err != nil {
		return nil, err
	}
	url, err := s.store.PresignedGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &models.ExportRes{
		FileKey:     key,
		DownloadURL: url,
		Expires:     time.Now().UTC().Add(s.urlTTL),
		TreeCount:   count,
	}, nil
}

// ExportTree writes one tree snapshot and returns a download link for it.
func (s *ExportService) ExportTree(ctx context.Context, treeID string) (*models.ExportRes, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	t, err := s.trees.Get(ctx, treeID)
	if err != nil {
		return nil, err
	}
	data, err := snapshot.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode tree %s: %w", treeID, err)
	}
	res, err := s.upload(ctx, s.exports.Key(t.Name), data, 1)
	if err != nil {
		return nil, err
	}
	s.log.Info("tree exported", "tree_id", treeID, "key", res.FileKey)
	return res, nil
}

// ImportTree reads a single-tree snapshot and stores it under a new id.
func (s *ExportService) ImportTree(ctx context.Context, fileKey string) (*tree.Tree, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	if strings.TrimSpace(fileKey) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "file_key is required")
	}
	data, err := s.fetch(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	t, err := snapshot.Unmarshal(data)
	if err != nil {
		if errors.Is(err, snapshot.ErrDanglingReference) || errors.Is(err, snapshot.ErrMalformedDate) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrInvalidInput, "snapshot %s: %v", fileKey, err)
	}
	return s.trees.Import(ctx, t)
}

// Backup writes every decodable tree as one collection.
func (s *ExportService) Backup(ctx context.Context, currentTreeID string) (*models.ExportRes, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	trees, err := s.trees.All(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snapshot.NewCollection(trees, currentTreeID))
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	res, err := s.upload(ctx, s.backups.Key("collection"), data, len(trees))
	if err != nil {
		return nil, err
	}
	s.log.Info("backup written", "key", res.FileKey, "trees", len(trees))
	return res, nil
}

// Restore imports every tree of a backup. Trees that fail to decode are
// reported and skipped; the rest are still restored.
func (s *ExportService) Restore(ctx context.Context, fileKey string) (*models.RestoreRes, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	if !s.backups.HasPrefix(fileKey) {
		return nil, errors.Wrapf(ErrInvalidInput, "%q is not a backup key", fileKey)
	}
	data, err := s.fetch(ctx, fileKey)
	if err != nil {
		return nil, err
	}
	var c snapshot.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "backup %s: %v", fileKey, err)
	}

	trees, failures := c.Decode()
	res := &models.RestoreRes{Restored: make([]models.TreeSummary, 0, len(trees))}
	for _, f := range failures {
		s.log.Warn("backup tree skipped", "key", fileKey, "tree_id", f.TreeID, "error", f.Err)
		res.Failed = append(res.Failed, models.RestoreFailure{TreeID: f.TreeID, Error: f.Err.Error()})
	}
	for _, t := range trees {
		imported, err := s.trees.Import(ctx, t)
		if err != nil {
			res.Failed = append(res.Failed, models.RestoreFailure{TreeID: t.ID, Error: err.Error()})
			continue
		}
		res.Restored = append(res.Restored, models.SummaryOf(imported))
	}
	return res, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go_branch_chat/models"
	"go_branch_chat/pkg/idgen"
	"go_branch_chat/pkg/layout"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/platform/cache"
	"go_branch_chat/platform/events"
	"go_branch_chat/repository"
)

// keyedMutex hands out one mutex per tree id. Entries live only while a
// caller holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// lock copies key before storing it: ids taken from fiber request params
// point into buffers that are reused by later requests.
func (k *keyedMutex) lock(key string) func() {
	key = strings.Clone(key)
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// TreeService owns every stored tree. Mutations of one tree run one at a
// time: load, apply the engine operation, save, publish.
type TreeService struct {
	repo      repository.TreeRepository
	engine    *tree.Engine
	trees     *cache.TypedCache[*tree.Tree]
	publisher events.Publisher
	cacheTTL  time.Duration
	locks     *keyedMutex
	log       *slog.Logger
}

// NewTreeService wires the store. publisher may be nil.
func NewTreeService(repo repository.TreeRepository, cacheService cache.CacheService,
	publisher events.Publisher, engine *tree.Engine, cacheTTL time.Duration) *TreeService {
	return &TreeService{
		repo:      repo,
		engine:    engine,
		trees:     cache.NewTypedCache[*tree.Tree](cacheService),
		publisher: publisher,
		cacheTTL:  cacheTTL,
		locks:     newKeyedMutex(),
		log:       logging.Component("tree_service"),
	}
}

func (s *TreeService) Engine() *tree.Engine {
	return s.engine
}

func cacheKey(treeID string) string {
	return "tree:" + treeID
}

func (s *TreeService) load(ctx context.Context, treeID string) (*tree.Tree, error) {
	return s.trees.GetOrLoad(cacheKey(treeID), s.cacheTTL, func() (*tree.Tree, error) {
		rec, err := s.repo.GetByID(ctx, treeID)
		if err != nil {
			return nil, err
		}
		t, err := rec.Tree()
		if err != nil {
			s.log.Error("stored snapshot rejected", "tree_id", treeID, "error", err)
			return nil, errors.Wrapf(ErrCorruptSnapshot, "tree %s: %v", treeID, err)
		}
		return t, nil
	})
}

func (s *TreeService) save(ctx context.Context, t *tree.Tree) error {
	rec, err := models.NewTreeRecord(t)
	if err != nil {
		return fmt.Errorf("encode tree %s: %w", t.ID, err)
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save tree %s: %w", t.ID, err)
	}
	if err := s.trees.Set(cacheKey(t.ID), t, s.cacheTTL); err != nil {
		s.log.Warn("cache write failed, evicting", "tree_id", t.ID, "error", err)
		_ = s.trees.Delete(cacheKey(t.ID))
	}
	return nil
}

func (s *TreeService) publish(ctx context.Context, t *tree.Tree, event *models.TreeEvent) {
	if s.publisher == nil || event == nil {
		return
	}
	event.TreeID = t.ID
	event.CurrentNodeID = t.CurrentNodeID
	event.NodeCount = len(t.Nodes)
	if b, ok := t.ActiveBranch(); ok {
		event.ActiveBranchID = b.ID
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish tree event failed", "tree_id", t.ID, "type", event.Type, "error", err)
	}
}

// mutate serializes fn against other mutations of the same tree.
func (s *TreeService) mutate(ctx context.Context, treeID string,
	fn func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error)) (*tree.Tree, error) {
	unlock := s.locks.lock(treeID)
	defer unlock()

	current, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	next, event, err := fn(current)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.publish(ctx, next, event)
	return next, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(tree.ErrInvalidName, "name is blank")
	}
	return name, nil
}

func (s *TreeService) Create(ctx context.Context, req models.CreateTreeReq) (*tree.Tree, error) {
	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}
	t := s.engine.CreateTree(name, req.FirstUserMessage, req.FirstAIResponse)
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("tree created", "tree_id", t.ID, "nodes", len(t.Nodes))
	s.publish(ctx, t, &models.TreeEvent{Type: models.EventTreeCreated, NodeID: t.RootID})
	return t, nil
}

func (s *TreeService) List(ctx context.Context) ([]models.TreeSummary, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	res := make([]models.TreeSummary, 0, len(records))
	for _, rec := range records {
		res = append(res, rec.Summary())
	}
	return res, nil
}

func (s *TreeService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *TreeService) Get(ctx context.Context, treeID string) (*tree.Tree, error) {
	return s.load(ctx, treeID)
}

// All loads every stored tree in creation order. Trees whose snapshot does
// not decode are skipped and logged.
func (s *TreeService) All(ctx context.Context) ([]*tree.Tree, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tree ids: %w", err)
	}
	res := make([]*tree.Tree, 0, len(ids))
	for _, id := range ids {
		t, err := s.load(ctx, id)
		if errors.Is(err, ErrCorruptSnapshot) || errors.Is(err, repository.ErrTreeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (s *TreeService) Delete(ctx context.Context, treeID string) error {
	unlock := s.locks.lock(treeID)
	defer unlock()

	if err := s.repo.Delete(ctx, treeID); err != nil {
		return err
	}
	if err := s.trees.Delete(cacheKey(treeID)); err != nil {
		s.log.Warn("cache evict failed", "tree_id", treeID, "error", err)
	}
	s.log.Info("tree deleted", "tree_id", treeID)
	if s.publisher != nil {
		event := &models.TreeEvent{Type: models.EventTreeDeleted, TreeID: treeID}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn("publish tree event failed", "tree_id", treeID, "error", err)
		}
	}
	return nil
}

func (s *TreeService) Rename(ctx context.Context, treeID, name string) (*tree.Tree, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		return s.engine.Rename(t, name), &models.TreeEvent{Type: models.EventTreeUpdated}, nil
	})
}

// AppendExchange adds a finished user/assistant pair under the current node.
func (s *TreeService) AppendExchange(ctx context.Context, treeID string, req models.ExchangeReq) (*tree.Tree, string, error) {
	return s.appendExchange(ctx, treeID, req, nil)
}

// AppendExchangeAt adds the pair under parentID with branchID active, the
// position the exchange was asked from, whatever the current node is now.
// An empty parentID means the question was asked on an empty tree.
func (s *TreeService) AppendExchangeAt(ctx context.Context, treeID, parentID, branchID string, req models.ExchangeReq) (*tree.Tree, string, error) {
	return s.appendExchange(ctx, treeID, req, func(t *tree.Tree) (*tree.Tree, error) {
		if parentID == "" {
			if !t.IsEmpty() {
				return nil, errors.Wrap(ErrStaleContext, "tree got a root while the answer was pending")
			}
			return t, nil
		}
		at := t
		if active, ok := at.ActiveBranch(); branchID != "" && (!ok || active.ID != branchID) {
			switched, err := s.engine.SwitchActiveBranchOnly(at, branchID)
			if err != nil {
				return nil, err
			}
			at = switched
		}
		if at.CurrentNodeID == parentID {
			return at, nil
		}
		return s.engine.NavigateTo(at, parentID)
	})
}

func (s *TreeService) appendExchange(ctx context.Context, treeID string, req models.ExchangeReq,
	position func(t *tree.Tree) (*tree.Tree, error)) (*tree.Tree, string, error) {
	if strings.TrimSpace(req.UserMessage) == "" && strings.TrimSpace(req.AIResponse) == "" {
		return nil, "", errors.Wrap(ErrInvalidInput, "exchange has no content")
	}
	var nodeID string
	next, err := s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		if position != nil {
			at, err := position(t)
			if err != nil {
				return nil, nil, err
			}
			t = at
		}
		updated, id, err := s.engine.AppendExchange(t, req.UserMessage, req.AIResponse, req.Options()...)
		if err != nil {
			return nil, nil, err
		}
		nodeID = id
		return updated, &models.TreeEvent{Type: models.EventNodeAppended, NodeID: id}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return next, nodeID, nil
}

func (s *TreeService) CreateBranch(ctx context.Context, treeID, forkNodeID, name string) (*tree.Tree, tree.Branch, error) {
	var created tree.Branch
	next, err := s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		updated, b, err := s.engine.CreateBranch(t, forkNodeID, name)
		if err != nil {
			return nil, nil, err
		}
		created = b
		return updated, &models.TreeEvent{Type: models.EventBranchCreated, BranchID: b.ID, NodeID: forkNodeID}, nil
	})
	if err != nil {
		return nil, tree.Branch{}, err
	}
	return next, created, nil
}

// SelectBranch activates the branch and moves to its leaf.
func (s *TreeService) SelectBranch(ctx context.Context, treeID, branchID string) (*tree.Tree, error) {
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		updated, err := s.engine.SelectBranch(t, branchID)
		if err != nil {
			return nil, nil, err
		}
		return updated, &models.TreeEvent{Type: models.EventBranchChanged, BranchID: branchID}, nil
	})
}

// SwitchBranch activates the branch without moving the current node.
func (s *TreeService) SwitchBranch(ctx context.Context, treeID, branchID string) (*tree.Tree, error) {
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		updated, err := s.engine.SwitchActiveBranchOnly(t, branchID)
		if err != nil {
			return nil, nil, err
		}
		return updated, &models.TreeEvent{Type: models.EventBranchChanged, BranchID: branchID}, nil
	})
}

// Navigate moves the current node. With focus set, the node's authoring
// branch is activated first, as a click on the graph does.
func (s *TreeService) Navigate(ctx context.Context, treeID, nodeID string, focus bool) (*tree.Tree, error) {
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		var (
			updated *tree.Tree
			err     error
		)
		if focus {
			updated, err = s.engine.Focus(t, nodeID)
		} else {
			updated, err = s.engine.NavigateTo(t, nodeID)
		}
		if err != nil {
			return nil, nil, err
		}
		return updated, &models.TreeEvent{Type: models.EventNavigated, NodeID: nodeID}, nil
	})
}

func (s *TreeService) SaveNodePositions(ctx context.Context, treeID string, positions map[string]tree.Position) (*tree.Tree, error) {
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		return s.engine.SaveNodePositions(t, positions), &models.TreeEvent{Type: models.EventLayoutChanged}, nil
	})
}

func (s *TreeService) ClearNodePositions(ctx context.Context, treeID string) (*tree.Tree, error) {
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		return s.engine.ClearNodePositions(t), &models.TreeEvent{Type: models.EventLayoutChanged}, nil
	})
}

func (s *TreeService) SetViewport(ctx context.Context, treeID string, vp tree.Viewport) (*tree.Tree, error) {
	if vp.Zoom <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "zoom must be positive, got %v", vp.Zoom)
	}
	return s.mutate(ctx, treeID, func(t *tree.Tree) (*tree.Tree, *models.TreeEvent, error) {
		return s.engine.SetViewport(t, vp), &models.TreeEvent{Type: models.EventLayoutChanged}, nil
	})
}

// Path returns the root-first path to nodeID, or to the current node when
// nodeID is empty.
func (s *TreeService) Path(ctx context.Context, treeID, nodeID string) (*models.PathRes, error) {
	t, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if nodeID == "" {
		nodeID = t.CurrentNodeID
	} else if _, ok := t.Node(nodeID); !ok {
		return nil, errors.Wrapf(tree.ErrNodeNotFound, "node %q", nodeID)
	}
	return &models.PathRes{
		NodeID:   nodeID,
		Nodes:    tree.PathTo(t, nodeID),
		Messages: tree.History(t, nodeID),
	}, nil
}

func (s *TreeService) Layout(ctx context.Context, treeID string) (*models.LayoutRes, error) {
	t, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	res := layout.Compute(t)
	return &models.LayoutRes{
		TreeID:        t.ID,
		CurrentNodeID: t.CurrentNodeID,
		Nodes:         res.Nodes,
		Edges:         res.Edges,
		Viewport:      t.Viewport,
	}, nil
}

func (s *TreeService) Stats(ctx context.Context, treeID string) (*models.TreeStats, error) {
	t, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	stats := &models.TreeStats{
		TreeID:        t.ID,
		NodeCount:     len(t.Nodes),
		BranchCount:   len(t.Branches),
		LeafCount:     len(tree.LeafNodes(t)),
		Depth:         tree.Depth(t),
		NodesByBranch: make(map[string]int, len(t.Branches)),
	}
	for _, n := range t.Nodes {
		stats.NodesByBranch[n.BranchID]++
		if n.Metadata.TokensUsed != nil {
			stats.TokensUsed += *n.Metadata.TokensUsed
		}
	}
	return stats, nil
}

// Import stores t under a fresh id. The tree must pass validation.
func (s *TreeService) Import(ctx context.Context, t *tree.Tree) (*tree.Tree, error) {
	if err := tree.Validate(t); err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "imported tree %s: %v", t.ID, err)
	}
	cp := *t
	cp.ID = idgen.New(idgen.KindTree)
	if err := s.save(ctx, &cp); err != nil {
		return nil, err
	}
	s.log.Info("tree imported", "tree_id", cp.ID, "source_id", t.ID, "nodes", len(cp.Nodes))
	s.publish(ctx, &cp, &models.TreeEvent{Type: models.EventTreeCreated, NodeID: cp.RootID})
	return &cp, nil
}

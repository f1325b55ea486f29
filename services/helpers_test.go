package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go_branch_chat/models"
	"go_branch_chat/pkg/idgen"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/platform/cache"
	"go_branch_chat/platform/events"
	"go_branch_chat/repository"
)

func newTestEngine() *tree.Engine {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	return tree.NewEngine(
		tree.WithIDGenerator(idgen.NewSequence("")),
		tree.WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
	)
}

type fixture struct {
	repo      repository.TreeRepository
	cache     *cache.Service
	publisher *events.LocalPublisher
	trees     *TreeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryTreeRepository()
	cs := cache.NewCacheService(cache.InitL1Cache(), nil)
	pub := events.NewLocalPublisher()
	return &fixture{
		repo:      repo,
		cache:     cs,
		publisher: pub,
		trees:     NewTreeService(repo, cs, pub, newTestEngine(), time.Minute),
	}
}

// subscribe collects events until the test ends.
func (f *fixture) subscribe(t *testing.T) <-chan *models.TreeEvent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := f.publisher.Subscribe(ctx)
	require.NoError(t, err)
	return ch
}

func nextEvent(t *testing.T, ch <-chan *models.TreeEvent) *models.TreeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return nil
	}
}

// createChain stores a tree with a root and n-1 appended exchanges.
func (f *fixture) createChain(t *testing.T, n int) (*tree.Tree, []string) {
	t.Helper()
	ctx := context.Background()
	tr, err := f.trees.Create(ctx, models.CreateTreeReq{Name: "Demo", FirstUserMessage: "q0", FirstAIResponse: "a0"})
	require.NoError(t, err)
	ids := []string{tr.RootID}
	for i := 1; i < n; i++ {
		var id string
		tr, id, err = f.trees.AppendExchange(ctx, tr.ID, models.ExchangeReq{UserMessage: "q", AIResponse: "a"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return tr, ids
}

type fakeCompletion struct {
	mu       sync.Mutex
	calls    int
	settings *CompletionSettings
	messages []tree.Message
	answer   string
	err      error
	during   func()
}

func (f *fakeCompletion) Complete(_ context.Context, settings *CompletionSettings, messages []tree.Message) (*CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.settings = settings
	f.messages = messages
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResult{Content: f.answer, Model: settings.Model, TokensUsed: 42}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) PutObject(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errObjectMissing
	}
	return data, nil
}

func (s *fakeStore) FileExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) PresignedGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.local/" + key + "?sig=x", nil
}

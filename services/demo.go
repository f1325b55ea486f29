package services

import (
	"context"

	"go_branch_chat/models"
	"go_branch_chat/pkg/tree"
)

type demoStep struct {
	user, ai string
}

// BuildDemoTree builds a small tree with a main line and three branches.
func BuildDemoTree(e *tree.Engine) (*tree.Tree, error) {
	t := e.CreateTree("Go concurrency",
		"What is a goroutine?",
		"A goroutine is a function running concurrently with other goroutines in the same address space. "+
			"They are cheap to start and the runtime multiplexes them onto OS threads.")
	rootID := t.RootID

	appendAll := func(t *tree.Tree, steps []demoStep) (*tree.Tree, string, error) {
		var last string
		for _, st := range steps {
			var err error
			t, last, err = e.AppendExchange(t, st.user, st.ai)
			if err != nil {
				return nil, "", err
			}
		}
		return t, last, nil
	}

	t, _, err := appendAll(t, []demoStep{
		{"How many can I run?", "Hundreds of thousands is routine. Each starts with a small stack that grows as needed."},
		{"When does a goroutine stop?", "When its function returns. Nothing stops it from outside, so pass a context or a done channel."},
	})
	if err != nil {
		return nil, err
	}

	t, _, err = e.CreateBranch(t, rootID, "Channels")
	if err != nil {
		return nil, err
	}
	t, channelsID, err := appendAll(t, []demoStep{
		{"How do goroutines talk to each other?", "Through channels: typed conduits you send to and receive from with the <- operator."},
		{"Buffered or unbuffered?", "Unbuffered channels synchronize sender and receiver. Buffered ones decouple them up to the capacity."},
	})
	if err != nil {
		return nil, err
	}

	t, _, err = e.CreateBranch(t, channelsID, "Select")
	if err != nil {
		return nil, err
	}
	t, _, err = appendAll(t, []demoStep{
		{"How do I wait on several channels?", "Use select. It blocks until one case can proceed and picks randomly among ready cases."},
	})
	if err != nil {
		return nil, err
	}

	t, _, err = e.CreateBranch(t, rootID, "Shared memory")
	if err != nil {
		return nil, err
	}
	t, _, err = appendAll(t, []demoStep{
		{"Can goroutines share a map?", "Only with synchronization. Guard it with a sync.Mutex or use sync.Map for append-mostly caches."},
		{"How do I find races?", "Run the tests with -race. The detector reports unsynchronized access at runtime."},
	})
	if err != nil {
		return nil, err
	}

	t, err = e.SelectBranch(t, tree.DefaultBranchID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SeedDemo stores the demo tree when the store holds no trees yet.
func (s *TreeService) SeedDemo(ctx context.Context) (*tree.Tree, bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return nil, false, nil
	}
	t, err := BuildDemoTree(s.engine)
	if err != nil {
		return nil, false, err
	}
	if err := s.save(ctx, t); err != nil {
		return nil, false, err
	}
	s.log.Info("demo tree seeded", "tree_id", t.ID, "nodes", len(t.Nodes), "branches", len(t.Branches))
	s.publish(ctx, t, &models.TreeEvent{Type: models.EventTreeCreated, NodeID: t.RootID})
	return t, true, nil
}

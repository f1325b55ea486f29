package events

import (
	"context"
	"sync"
	"time"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

// LocalPublisher delivers events inside one process. It is used when no
// Redis is configured.
type LocalPublisher struct {
	mu   sync.RWMutex
	subs map[chan *models.TreeEvent]struct{}
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{subs: make(map[chan *models.TreeEvent]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (p *LocalPublisher) Publish(_ context.Context, event *models.TreeEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for ch := range p.subs {
		cp := *event
		select {
		case ch <- &cp:
		default:
			logging.Logger.Warn("tree event dropped for slow subscriber", "tree_id", event.TreeID)
		}
	}
	return nil
}

func (p *LocalPublisher) Subscribe(ctx context.Context) (<-chan *models.TreeEvent, error) {
	ch := make(chan *models.TreeEvent, subscriberBuffer)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, ch)
		close(ch)
		p.mu.Unlock()
	}()
	return ch, nil
}

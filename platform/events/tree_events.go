package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

const (
	TreeEventChannel = "tree:events"
	subscriberBuffer = 100
)

// Publisher fans tree events out to websocket subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *models.TreeEvent) error
	Subscribe(ctx context.Context) (<-chan *models.TreeEvent, error)
}

// RedisPublisher shares events between every instance behind the same Redis.
type RedisPublisher struct {
	redisClient *redis.Client
}

func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{redisClient: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *models.TreeEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error("marshal tree event failed", "error", err)
		return err
	}
	if err := p.redisClient.Publish(ctx, TreeEventChannel, string(data)).Err(); err != nil {
		logging.Logger.Error("publish tree event failed", "error", err)
		return err
	}
	logging.Logger.Debug("tree event published", "type", event.Type, "tree_id", event.TreeID)
	return nil
}

func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan *models.TreeEvent, error) {
	pubsub := p.redisClient.Subscribe(ctx, TreeEventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Logger.Error("subscribe tree events failed", "error", err)
		return nil, err
	}
	ch := make(chan *models.TreeEvent, subscriberBuffer)

	go func() {
		defer close(ch)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logging.Logger.Error("close tree event subscription failed", "error", err)
			}
		}()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.TreeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Logger.Error("unmarshal tree event failed", "error", err)
					continue
				}
				select {
				case ch <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

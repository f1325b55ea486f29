package bootstrap

import (
	"context"
	"fmt"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/cache"
	"go_branch_chat/platform/database"
	"go_branch_chat/platform/events"
	"go_branch_chat/platform/redis"
	"go_branch_chat/platform/storage"
)

// Infrastructure holds the external connections. DB, Redis and Storage are
// nil when the configuration leaves them out.
type Infrastructure struct {
	DB             *database.DB
	Redis          *redis.Service
	Storage        *storage.Service
	Cache          cache.CacheService
	EventPublisher events.Publisher
}

func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{}

	switch cfg.StoreType {
	case "postgres":
		db, err := database.InitPostgres(cfg)
		if err != nil {
			return nil, err
		}
		infra.DB = db
		if err := infra.DB.AutoMigrate(); err != nil {
			return nil, err
		}
	case "memory":
		logging.Logger.Warn("using in-memory tree store, trees are lost on restart")
	default:
		return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.StoreType)
	}

	var l2 cache.Remote
	if cfg.RedisURL != "" {
		redisService, err := redis.InitRedis(cfg)
		if err != nil {
			logging.Logger.Error("redis init failed", "error", err)
			return nil, err
		}
		infra.Redis = redisService
		l2 = redisService
		infra.EventPublisher = events.NewRedisPublisher(redisService.Rdb)
	} else {
		infra.EventPublisher = events.NewLocalPublisher()
	}
	infra.Cache = cache.NewCacheService(cache.InitL1Cache(), l2)

	if cfg.StorageType != "" {
		storageService, err := storage.InitStorageService(ctx, cfg)
		if err != nil {
			logging.Logger.Error("storage init failed", "error", err)
			return nil, err
		}
		infra.Storage = storageService
	}

	return infra, nil
}

func (infra *Infrastructure) Shutdown() error {
	if infra.DB != nil {
		if err := infra.DB.Close(); err != nil {
			logging.Logger.Error("closing database failed", "error", err)
			return err
		}
	}
	if infra.Redis != nil {
		if err := infra.Redis.Close(); err != nil {
			logging.Logger.Error("closing redis failed", "error", err)
			return err
		}
	}
	return nil
}

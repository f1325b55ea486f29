package cache

import "time"

// CacheService is the two-level cache used by the services.
type CacheService interface {
	GetCache(key string) (interface{}, bool)
	SetCache(key string, value interface{}, expiration time.Duration) error
	DelCache(key string) error
	GetOrLoad(key string, expiration time.Duration, load func() (interface{}, error)) (interface{}, error)
}

// Remote is the shared L2 tier. *redis.Service implements it.
type Remote interface {
	GetCache(key string) (interface{}, bool)
	SetCache(key string, value interface{}, expiration time.Duration) error
	DelCache(key string) error
}

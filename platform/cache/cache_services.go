package cache

import (
	"time"

	"golang.org/x/sync/singleflight"

	"go_branch_chat/pkg/logging"
)

// l1Share is the fraction of the expiration an entry stays in process memory
// when an L2 tier backs it.
const l1Share = 0.3

type Service struct {
	l1 *L1CacheService
	l2 Remote
	sf singleflight.Group
}

// NewCacheService builds the cache. l2 may be nil, in which case L1 keeps
// entries for the full expiration.
func NewCacheService(l1 *L1CacheService, l2 Remote) *Service {
	return &Service{l1: l1, l2: l2}
}

func (cs *Service) GetCache(key string) (interface{}, bool) {
	if data, ok := cs.l1.Get(key); ok {
		return data, ok
	}
	if cs.l2 == nil {
		return nil, false
	}
	if data, ok := cs.l2.GetCache(key); ok {
		return data, ok
	}
	return nil, false
}

func (cs *Service) SetCache(key string, value interface{}, expiration time.Duration) error {
	if cs.l2 == nil {
		cs.l1.Set(key, value, expiration)
		return nil
	}
	if err := cs.l2.SetCache(key, value, expiration); err != nil {
		logging.Logger.Error("l2 SetCache failed", "key", key, "error", err)
		return err
	}
	cs.l1.Set(key, value, time.Duration(float64(expiration)*l1Share))
	return nil
}

func (cs *Service) DelCache(key string) error {
	cs.l1.Del(key)
	if cs.l2 == nil {
		return nil
	}
	if err := cs.l2.DelCache(key); err != nil {
		logging.Logger.Error("l2 DelCache failed", "key", key, "error", err)
		return err
	}
	return nil
}

// GetOrLoad returns the cached value for key, or calls load once per key
// across concurrent callers and caches its result.
func (cs *Service) GetOrLoad(key string, expiration time.Duration, load func() (interface{}, error)) (interface{}, error) {
	if data, ok := cs.GetCache(key); ok {
		return data, nil
	}
	v, err, _ := cs.sf.Do(key, func() (interface{}, error) {
		value, err := load()
		if err != nil {
			return nil, err
		}
		if err := cs.SetCache(key, value, expiration); err != nil {
			// the value is still good; only the cache write failed
			logging.Logger.Warn("cache fill failed", "key", key, "error", err)
		}
		return value, nil
	})
	return v, err
}

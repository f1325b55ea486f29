package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypedCache wraps CacheService with typed values. Values coming back from
// the L2 tier arrive as JSON strings and are decoded into T.
type TypedCache[T any] struct {
	cache CacheService
}

func NewTypedCache[T any](cache CacheService) *TypedCache[T] {
	return &TypedCache[T]{cache: cache}
}

func (tc *TypedCache[T]) Set(key string, value T, expiration time.Duration) error {
	return tc.cache.SetCache(key, value, expiration)
}

func (tc *TypedCache[T]) Get(key string) (T, bool, error) {
	var zero T
	rawValue, exists := tc.cache.GetCache(key)
	if !exists {
		return zero, false, nil
	}
	v, err := decode[T](rawValue)
	if err != nil {
		return zero, true, err
	}
	return v, true, nil
}

func (tc *TypedCache[T]) GetOrLoad(key string, expiration time.Duration, load func() (T, error)) (T, error) {
	var zero T
	rawValue, err := tc.cache.GetOrLoad(key, expiration, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return zero, err
	}
	return decode[T](rawValue)
}

func (tc *TypedCache[T]) Delete(key string) error {
	return tc.cache.DelCache(key)
}

func decode[T any](rawValue interface{}) (T, error) {
	var result T
	if typedValue, ok := rawValue.(T); ok {
		return typedValue, nil
	}
	switch v := rawValue.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &result); err != nil {
			return result, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &result); err != nil {
			return result, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
	default:
		jsonData, err := json.Marshal(rawValue)
		if err != nil {
			return result, fmt.Errorf("failed to marshal intermediate value: %w", err)
		}
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return result, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
	}
	return result, nil
}

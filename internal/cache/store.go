package cache

import (
	"context"
	"fmt"
)

// Store is a typed namespace within a Cache. Keys are prefixed with the namespace
// so two stores never collide, while both draw on the same size bound.
type Store[V any] struct {
	cache     *Cache
	namespace string
}

// NewStore returns a typed view of c under namespace
func NewStore[V any](c *Cache, namespace string) *Store[V] {
	return &Store[V]{cache: c, namespace: namespace}
}

// Key returns the underlying cache key for key
func (s *Store[V]) Key(key string) string {
	return s.namespace + ":" + key
}

// Get returns a live value for key
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	v, ok := s.cache.Get(s.Key(key))
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// Set stores value for one TTL
func (s *Store[V]) Set(key string, value V) {
	s.cache.Set(s.Key(key), value)
}

// Delete removes key
func (s *Store[V]) Delete(key string) {
	s.cache.Delete(s.Key(key))
}

// GetOrLoad is Cache.GetOrLoad with a typed loader
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, bool, error) {
	var zero V
	v, hit, err := s.cache.GetOrLoad(ctx, s.Key(key), func(ctx context.Context) (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, false, err
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false, fmt.Errorf("cache: key %q holds %T, not %T", s.Key(key), v, zero)
	}
	return typed, hit, nil
}

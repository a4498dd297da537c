package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a TTL key-value store. Expiry is evaluated lazily on Get.
// Concurrent writers to one key are last-write-wins.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
}

// MemoryStore keeps values in process memory
type MemoryStore[V any] struct {
	items *gocache.Cache
}

// NewMemoryStore creates an in-memory store. cleanupInterval only controls how often
// expired items are evicted; reads never return expired values.
func NewMemoryStore[V any](cleanupInterval time.Duration) *MemoryStore[V] {
	return &MemoryStore[V]{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	raw, ok := s.items.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

func (s *MemoryStore[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, value, ttl)
}

// Len returns the number of stored items, including expired ones not yet evicted
func (s *MemoryStore[V]) Len() int {
	return s.items.ItemCount()
}

// Flush removes every item
func (s *MemoryStore[V]) Flush() {
	s.items.Flush()
}

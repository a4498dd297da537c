package cache

import (
	"context"
	"time"
)

// Tiered reads through a fast local store to a shared remote one.
// Remote hits are copied into the local store for backfillTTL.
type Tiered[V any] struct {
	local       Store[V]
	remote      Store[V]
	backfillTTL time.Duration
}

// NewTiered composes two stores
func NewTiered[V any](local, remote Store[V], backfillTTL time.Duration) *Tiered[V] {
	return &Tiered[V]{
		local:       local,
		remote:      remote,
		backfillTTL: backfillTTL,
	}
}

func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.remote.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, v, t.backfillTTL)
	}
	return v, ok
}

func (t *Tiered[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	t.local.Set(ctx, key, value, ttl)
	t.remote.Set(ctx, key, value, ttl)
}

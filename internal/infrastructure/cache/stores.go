package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// Observed counts lookups on a store in prometheus and, when counted is set,
// in the request's diagnostics recorder.
type Observed[V any] struct {
	inner   Store[V]
	name    string
	counted bool
}

// Observe wraps a store
func Observe[V any](inner Store[V], name string, counted bool) *Observed[V] {
	return &Observed[V]{inner: inner, name: name, counted: counted}
}

func (o *Observed[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := o.inner.Get(ctx, key)
	metrics.CacheLookup(o.name, ok)
	if o.counted {
		rec := diagnostics.FromContext(ctx)
		if ok {
			rec.CacheHit()
		} else {
			rec.CacheMiss()
		}
	}
	return v, ok
}

func (o *Observed[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	o.inner.Set(ctx, key, value, ttl)
}

// Stores bundles the three independent caches with their TTL policy
type Stores struct {
	TokenInfo Store[entities.TokenInfo]
	Prices    Store[entities.TokenPrice]
	Failed    Store[bool]

	TokenInfoTTL       time.Duration
	HistoricalPriceTTL time.Duration
	CurrentPriceTTL    time.Duration
	FailedTTL          time.Duration
}

// NewStores builds memory-backed stores, tiered over Redis when rdb is non-nil.
// The failed store stays process-local so a shared tier never pins a transient outage.
func NewStores(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) *Stores {
	tokenInfo := Store[entities.TokenInfo](NewMemoryStore[entities.TokenInfo](cfg.CleanupInterval))
	prices := Store[entities.TokenPrice](NewMemoryStore[entities.TokenPrice](cfg.CleanupInterval))

	if rdb != nil {
		tokenInfo = NewTiered[entities.TokenInfo](tokenInfo,
			NewRedisStore[entities.TokenInfo](rdb, cfg.RedisPrefix+"token:", logger), cfg.CurrentPriceTTL)
		prices = NewTiered[entities.TokenPrice](prices,
			NewRedisStore[entities.TokenPrice](rdb, cfg.RedisPrefix+"price:", logger), cfg.CurrentPriceTTL)
	}

	return &Stores{
		TokenInfo:          Observe(tokenInfo, "token_info", true),
		Prices:             Observe(prices, "price", true),
		Failed:             Observe[bool](NewMemoryStore[bool](cfg.CleanupInterval), "failed", false),
		TokenInfoTTL:       cfg.TokenInfoTTL,
		HistoricalPriceTTL: cfg.HistoricalPriceTTL,
		CurrentPriceTTL:    cfg.CurrentPriceTTL,
		FailedTTL:          cfg.FailedTTL,
	}
}

// NewMemoryStores builds memory-only stores with the default TTLs
func NewMemoryStores() *Stores {
	return NewStores(config.CacheConfig{
		TokenInfoTTL:       24 * time.Hour,
		HistoricalPriceTTL: 12 * time.Hour,
		CurrentPriceTTL:    5 * time.Minute,
		FailedTTL:          time.Hour,
		CleanupInterval:    10 * time.Minute,
	}, nil, zap.NewNop())
}

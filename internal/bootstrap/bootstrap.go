// Package bootstrap wires the search engine from configuration for the API server and the CLI.
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
	"github.com/bimakw/chain-analytics/internal/infrastructure/cache"
	"github.com/bimakw/chain-analytics/internal/infrastructure/ethereum"
)

// Engine is a wired search service and the resources behind it
type Engine struct {
	Search *services.SearchService
	Client *ethereum.Client
	Redis  *redis.Client // nil when the shared cache tier is disabled or unreachable
	Labels *labels.Registry
}

// Close releases the engine's connections
func (e *Engine) Close() {
	e.Client.Close()
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
}

// NewEngine builds the cache stores, the chain client and the search service.
// An unreachable Redis degrades to memory-only caching.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	registry := labels.Default()
	if cfg.Search.LabelsFile != "" {
		loaded, err := labels.LoadFile(cfg.Search.LabelsFile, registry)
		if err != nil {
			return nil, err
		}
		registry = loaded
		logger.Info("Loaded address labels",
			zap.String("file", cfg.Search.LabelsFile),
			zap.Int("labels", registry.Len()),
		)
	}

	var rdb *redis.Client
	if cfg.Cache.RedisEnabled {
		client, err := cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, running with memory cache only", zap.Error(err))
		} else {
			rdb = client
		}
	}

	stores := cache.NewStores(cfg.Cache, rdb, logger)
	client := ethereum.NewClient(cfg.Ethereum, cfg.Prices, stores, logger)

	return &Engine{
		Search: services.NewSearchService(client, registry, cfg.Search, logger),
		Client: client,
		Redis:  rdb,
		Labels: registry,
	}, nil
}

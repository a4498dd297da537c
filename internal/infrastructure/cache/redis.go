package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return client, nil
}

// RedisStore keeps sonic-encoded values in Redis under a key prefix.
// Redis failures are logged and reported as misses so the caller falls through to the upstream.
type RedisStore[V any] struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore creates a store over an existing client
func NewRedisStore[V any](client *redis.Client, prefix string, logger *zap.Logger) *RedisStore[V] {
	return &RedisStore[V]{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Failed to get from cache",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return zero, false
	}

	var v V
	if err := sonic.Unmarshal(val, &v); err != nil {
		s.logger.Warn("Failed to unmarshal cached value",
			zap.String("key", key),
			zap.Error(err),
		)
		return zero, false
	}
	return v, true
}

func (s *RedisStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	data, err := sonic.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to marshal value", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		s.logger.Warn("Failed to set cache",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// RedisHealth adapts a Redis client to a health checker
type RedisHealth struct {
	Client *redis.Client
}

// HealthCheck checks if Redis is reachable
func (h RedisHealth) HealthCheck(ctx context.Context) error {
	return h.Client.Ping(ctx).Err()
}

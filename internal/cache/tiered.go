package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// Tiered checks the memory tier first and falls back to Redis, promoting
// Redis hits into memory.
type Tiered struct {
	memory *MemoryCache
	redis  *RedisCache
	logger *logrus.Logger
}

// New builds the response cache described by config. When Redis is
// configured but unreachable the cache degrades to memory only.
func New(config domain.CacheConfig, logger *logrus.Logger) *Tiered {
	t := &Tiered{
		memory: NewMemoryCache(config.MemoryMaxItems, config.MemoryTTL),
		logger: logger,
	}

	if config.RedisURL != "" {
		rc, err := NewRedisCache(config)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-memory response cache only")
		} else {
			t.redis = rc
		}
	}

	logger.WithFields(logrus.Fields{
		"memory_max_items": config.MemoryMaxItems,
		"memory_ttl":       config.MemoryTTL,
		"redis":            t.redis != nil,
	}).Info("Response cache initialized")

	return t
}

// NewTiered composes existing tiers. redis may be nil.
func NewTiered(memory *MemoryCache, redis *RedisCache, logger *logrus.Logger) *Tiered {
	return &Tiered{memory: memory, redis: redis, logger: logger}
}

// Get implements domain.ResponseCache.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, _ := t.memory.Get(ctx, key); ok {
		return data, true, nil
	}
	if t.redis == nil {
		return nil, false, nil
	}

	data, ok, err := t.redis.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.memory.Set(ctx, key, data, 0)
	return data, true, nil
}

// Set implements domain.ResponseCache. The memory tier is always written;
// a Redis failure is returned to the caller.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.memory.Set(ctx, key, value, ttl)
	if t.redis == nil {
		return nil
	}
	return t.redis.Set(ctx, key, value, ttl)
}

// Health reports "memory" or "redis", or an error when Redis is configured
// but not answering.
func (t *Tiered) Health(ctx context.Context) (string, error) {
	if t.redis == nil {
		return "memory", nil
	}
	if err := t.redis.Ping(ctx); err != nil {
		return "redis", err
	}
	return "redis", nil
}

// Close releases the Redis tier.
func (t *Tiered) Close() error {
	if t.redis == nil {
		return nil
	}
	return t.redis.Close()
}

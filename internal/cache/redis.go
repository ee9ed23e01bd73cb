package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

// ResultCache handles Redis-based caching of anonymization results.
// Lookups degrade to misses on any Redis failure; callers never see a
// cache error on the read path.
type ResultCache struct {
	client *redis.Client
	cfg    config.CacheConfig
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new Redis-based result cache
func New(cfg config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Parse Redis URL
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	rc := &ResultCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.URL)),
		zap.Int("pool_size", cfg.PoolSize),
		zap.Duration("default_ttl", cfg.TTL))

	return rc, nil
}

// Key derives the cache key for a content+policy pair. Both sides are
// digested so neither raw content nor policy material reaches Redis
// key space.
func (rc *ResultCache) Key(content, policy []byte) string {
	h := xxhash.New()
	h.Write(content)
	h.Write([]byte{0}) // separator so (ab,c) and (a,bc) cannot collide
	h.Write(policy)
	return fmt.Sprintf("%s%016x", rc.cfg.KeyPrefix, h.Sum64())
}

// Get looks up a cached result by key. A miss, an unreachable Redis,
// and a corrupted entry all report (nil, false).
func (rc *ResultCache) Get(ctx context.Context, key string) (*anonymize.Result, bool) {
	data, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		rc.misses.Add(1)
		rc.logger.Debug("Cache miss", zap.String("key", key))
		return nil, false
	} else if err != nil {
		rc.misses.Add(1)
		rc.logger.Error("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		rc.logger.Error("Failed to unmarshal cached entry", zap.Error(err))
		// Delete corrupted cache entry
		rc.client.Del(ctx, key)
		rc.misses.Add(1)
		return nil, false
	}

	rc.hits.Add(1)
	rc.logger.Debug("Cache hit", zap.String("key", key))
	return &entry.Result, true
}

// Put caches an anonymization result under the given key
func (rc *ResultCache) Put(ctx context.Context, key string, result *anonymize.Result) error {
	entry := Entry{
		Result:   *result,
		CachedAt: time.Now(),
		TTL:      int64(rc.cfg.TTL.Seconds()),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal result for caching: %w", err)
	}

	if err := rc.client.Set(ctx, key, data, rc.cfg.TTL).Err(); err != nil {
		rc.logger.Error("Failed to cache result", zap.Error(err))
		return fmt.Errorf("failed to cache result: %w", err)
	}

	rc.logger.Debug("Result cached", zap.String("key", key))
	return nil
}

// GetStats returns cache performance statistics
func (rc *ResultCache) GetStats(ctx context.Context) (*Stats, error) {
	info, err := rc.client.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &Stats{
		Hits:   rc.hits.Load(),
		Misses: rc.misses.Load(),
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	// Parse memory usage from Redis info
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "used_memory:") {
			if memStr := strings.TrimPrefix(line, "used_memory:"); memStr != "" {
				if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
					stats.MemoryUsage = mem
				}
			}
		}
	}

	keys, err := rc.client.DBSize(ctx).Result()
	if err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached results under this cache's key prefix
func (rc *ResultCache) Clear(ctx context.Context) error {
	pattern := rc.cfg.KeyPrefix + "*"

	// Use SCAN to find all keys with our prefix
	iter := rc.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			rc.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}

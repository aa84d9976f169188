package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds connection settings for the Redis-backed cache
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// RedisCache implements Cache over a Redis client with graceful degradation:
// after repeated failures it marks itself unhealthy and reports misses until
// a background ping succeeds again.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity. A failed initial
// ping returns the cache in degraded mode, not an error.
func NewRedisCache(cfg RedisConfig, logger zerolog.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	rc := &RedisCache{
		client:        client,
		logger:        logger,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("address", cfg.Address).Msg("Redis unavailable, cache starts degraded")
		return rc
	}

	rc.healthy = true
	rc.lastCheck = time.Now()
	logger.Info().Str("address", cfg.Address).Msg("Redis cache connected")
	return rc
}

// IsHealthy reports whether Redis is currently usable
func (rc *RedisCache) IsHealthy() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.healthy
}

func (rc *RedisCache) recordFailure() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.failureCount++
	if rc.failureCount >= rc.maxFailures {
		if rc.healthy {
			rc.logger.Warn().Int("failures", rc.failureCount).Msg("Redis marked unhealthy")
		}
		rc.healthy = false
	}
}

func (rc *RedisCache) recordSuccess() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.healthy {
		rc.logger.Info().Msg("Redis recovered")
	}
	rc.healthy = true
	rc.failureCount = 0
	rc.lastCheck = time.Now()
}

// checkHealth kicks off a background ping when unhealthy and overdue
func (rc *RedisCache) checkHealth() {
	rc.mu.RLock()
	shouldCheck := !rc.healthy && time.Since(rc.lastCheck) >= rc.checkInterval
	rc.mu.RUnlock()

	if !shouldCheck {
		return
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := rc.client.Ping(pingCtx).Err(); err == nil {
			rc.recordSuccess()
		} else {
			rc.mu.Lock()
			rc.lastCheck = time.Now()
			rc.mu.Unlock()
		}
	}()
}

// GetJSON retrieves and unmarshals a value. An unhealthy backend reads as a
// miss so callers fall through to the source.
func (rc *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	rc.checkHealth()

	if !rc.IsHealthy() {
		return ErrMiss
	}

	data, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		rc.recordFailure()
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	rc.recordSuccess()

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal cached value for %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals and stores a value with TTL. Writes while unhealthy are
// dropped silently.
func (rc *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	rc.checkHealth()

	if !rc.IsHealthy() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}

	if err := rc.client.Set(ctx, key, data, ttl).Err(); err != nil {
		rc.recordFailure()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	rc.recordSuccess()
	return nil
}

// Delete removes a key
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if !rc.IsHealthy() {
		return nil
	}

	if err := rc.client.Del(ctx, key).Err(); err != nil {
		rc.recordFailure()
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	rc.recordSuccess()
	return nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

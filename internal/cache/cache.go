package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/solver"
)

// ResultCache stores finished solve results in Redis so repeated queries
// skip the loop entirely.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*ResultCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ResultCache{rdb: rdb, ttl: ttl}, nil
}

func (c *ResultCache) Close() error { return c.rdb.Close() }

// Key normalizes a query and hashes it into a cache key.
func Key(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "assist:" + hex.EncodeToString(sum[:])
}

// Get returns the cached result for a query, if any.
func (c *ResultCache) Get(ctx context.Context, query string) (solver.SolveResult, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return solver.SolveResult{}, false, nil
	}
	if err != nil {
		return solver.SolveResult{}, false, fmt.Errorf("cache get: %w", err)
	}
	var result solver.SolveResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return solver.SolveResult{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return result, true, nil
}

// Put stores a result under its query key for the configured TTL.
func (c *ResultCache) Put(ctx context.Context, result solver.SolveResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(result.Query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Lock takes a best-effort distributed lock. The returned release func is
// safe to call even when the lock was not acquired.
func (c *ResultCache) Lock(ctx context.Context, name string, ttl time.Duration) (bool, func(), error) {
	key := "lock:" + name
	ok, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, func() {}, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.rdb.Del(releaseCtx, key)
	}
	return true, release, nil
}

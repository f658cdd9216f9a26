package bestmove

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
)

const cacheKeyPrefix = "bestmove:"

type CachedMove struct {
	MoveUCI  string    `json:"move_uci"`
	MoveSAN  string    `json:"move_san"`
	StoredAt time.Time `json:"stored_at"`
}

type Cache interface {
	Get(ctx context.Context, key string) (*CachedMove, error)
	Set(ctx context.Context, key string, move *CachedMove) error
}

// CacheKey ties a position to the engine settings that produced its move.
func CacheKey(variant, fen string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(variant) + "|" + strings.TrimSpace(fen)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient opens and pings a client for a redis:// or rediss:// URL.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Get returns nil without error on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*CachedMove, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m CachedMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode cached move: %w", err)
	}
	return &m, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, move *CachedMove) error {
	if move == nil || move.MoveUCI == "" {
		return nil
	}
	raw, err := json.Marshal(move)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

type nopCache struct{}

func NopCache() Cache { return nopCache{} }

func (nopCache) Get(context.Context, string) (*CachedMove, error) { return nil, nil }
func (nopCache) Set(context.Context, string, *CachedMove) error   { return nil }

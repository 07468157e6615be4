package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lifedash/internal/cache"
)

// DefaultDedupTTL bounds how long a processed delivery is remembered.
const DefaultDedupTTL = 24 * time.Hour

// Deduper remembers which deliveries were already exported.
type Deduper interface {
	// AcquireOnce reports whether key is seen for the first time. It returns
	// true when the backing store is unavailable so exports are never lost.
	AcquireOnce(ctx context.Context, key string) bool
	// Release forgets key so a requeued delivery is processed again.
	Release(ctx context.Context, key string)
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return redis.NewClient(opts), nil
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func dedupKey(key string) string {
	return "lifedash:export:" + key
}

func (d *RedisDeduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, dedupKey(key), 1, d.ttl).Result()
	if err != nil {
		slog.WarnContext(ctx, "Redis dedup check failed, allowing processing",
			"key", key,
			"error", err)
		return true
	}
	return ok
}

func (d *RedisDeduper) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, dedupKey(key)).Err(); err != nil {
		slog.WarnContext(ctx, "Redis dedup release failed", "key", key, "error", err)
	}
}

// MemoryDeduper keeps recent keys in a bounded in-process LRU. It only
// dedups within a single worker process.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen *cache.LRUCache[struct{}]
}

func NewMemoryDeduper(maxSize int, ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &MemoryDeduper{seen: cache.NewLRUCache[struct{}](maxSize, ttl)}
}

// Cache exposes the backing LRU so a cache.Manager can expire it.
func (d *MemoryDeduper) Cache() *cache.LRUCache[struct{}] {
	return d.seen
}

func (d *MemoryDeduper) AcquireOnce(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen.Get(key); ok {
		return false
	}
	d.seen.Set(key, struct{}{})
	return true
}

func (d *MemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Delete(key)
}

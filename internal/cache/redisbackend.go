package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scopeTTL bounds how long a scope's snapshot survives in Redis without a
// write, mirroring the episodic cache's own 30-minute item TTL (§4.9) so a
// restart never resurrects state the in-memory cache would already have
// garbage-collected.
const scopeTTL = ItemTTL

// RedisBackend persists scope snapshots to Redis/Valkey, grounded on the
// SetNX/Set-with-TTL cache-operations style of the pack's RedisRepository.
// It is wired into a Cache via WithPersistence, not used directly by callers.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend parses a redis:// URL and verifies connectivity.
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) key(scopeID string) string { return "amp:cache:" + scopeID }

// Load fetches a scope's persisted snapshot, or nil if none exists.
func (b *RedisBackend) Load(scopeID string) *ScopeSnapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(scopeID)).Bytes()
	if err != nil {
		return nil
	}
	var snap ScopeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}

// Save writes a scope's current snapshot, refreshing its TTL.
func (b *RedisBackend) Save(scopeID string, snap *ScopeSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	b.client.Set(ctx, b.key(scopeID), data, scopeTTL)
}

// Close releases the underlying connection pool.
func (b *RedisBackend) Close() error { return b.client.Close() }

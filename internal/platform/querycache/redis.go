package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis for multi-replica deployments. Entries
// are stored as JSON envelopes so the staleness flag survives the round trip.
// Garbage collection of disused entries is owned by Redis via key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed Store. All keys are namespaced under
// the given prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "telecare:qc"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Corrupt envelope. Drop it and report a miss.
		_ = s.client.Del(ctx, s.key(key)).Err()
		return nil, false, nil
	}
	return &e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) MarkStale(ctx context.Context, key string) error {
	e, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	e.Stale = true
	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil || ttl < 0 {
		ttl = 0
	}
	return s.Set(ctx, key, e, ttl)
}

func (s *RedisStore) MarkStalePrefix(ctx context.Context, prefix string) error {
	return s.scan(ctx, prefix, func(full, bare string) error {
		return s.MarkStale(ctx, bare)
	})
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	return s.scan(ctx, prefix, func(full, bare string) error {
		return s.client.Del(ctx, full).Err()
	})
}

// scan iterates all keys under the given bare prefix, calling fn with both
// the full Redis key and the bare cache key.
func (s *RedisStore) scan(ctx context.Context, prefix string, fn func(full, bare string) error) error {
	pattern := s.key(prefix) + "*"
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		bare := full[len(s.prefix)+1:]
		if err := fn(full, bare); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping reports whether the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

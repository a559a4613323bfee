package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as plain Redis strings and each tag as a Redis set
// of entry keys. Writes are pipelined so an entry and its tag memberships land
// together.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store backed by the given client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set implements Store. Tag sets live at least as long as the entry.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte, tags []string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		for _, tag := range tags {
			tk := TagKey(tag)
			pipe.SAdd(ctx, tk, key)
			pipe.Expire(ctx, tk, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteByTags implements Store. The tag sets themselves are removed too.
func (s *RedisStore) DeleteByTags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{})
	members := make([]string, 0, len(tags))
	tagKeys := make([]string, 0, len(tags))
	for _, tag := range tags {
		tk := TagKey(tag)
		tagKeys = append(tagKeys, tk)

		keys, err := s.redis.SMembers(ctx, tk).Result()
		if err != nil && err != redis.Nil {
			return 0, fmt.Errorf("redis smembers %s: %w", tk, err)
		}
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			members = append(members, k)
		}
	}

	var removed *redis.IntCmd
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(members) > 0 {
			removed = pipe.Del(ctx, members...)
		}
		pipe.Del(ctx, tagKeys...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

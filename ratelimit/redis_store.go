package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a CounterStore shared by every instance connected to the same Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

var _ CounterStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + "rl:" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, error) {
	count, err := s.redis.Get(ctx, s.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "RedisStore.Get")
	}
	return count, nil
}

// Increment creates the window key with its TTL and counts the attempt in one MULTI/EXEC,
// so a counter never exists without an expiry.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "RedisStore.Increment")
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrap(err, "RedisStore.Reset")
	}
	return nil
}

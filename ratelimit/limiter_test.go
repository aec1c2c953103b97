package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/dietitian-server/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := ratelimit.NewMemoryStore(ratelimit.WithNowTime(func() time.Time { return now }))
	limiter := ratelimit.New(store, true)
	key := ratelimit.Key("login", "10.0.0.1")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d", i+1)
	}

	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 3, count, "rejected attempts are not counted")

	ok, err = limiter.Allow(ctx, ratelimit.Key("login", "10.0.0.2"), 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "window elapsed")
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := ratelimit.NewMemoryStore(ratelimit.WithNowTime(func() time.Time { return now }))

	_, err := store.Increment(ctx, "a", time.Second)
	require.NoError(t, err)
	_, err = store.Increment(ctx, "b", time.Hour)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	require.Equal(t, 1, store.Sweep())
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), false)
	for i := 0; i < 10; i++ {
		ok, err := limiter.Allow(context.Background(), "k", 1, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := ratelimit.NewRedisStore(rdb, "test:")
	limiter := ratelimit.New(store, true)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "register:1.2.3.4", 2, time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "register:1.2.3.4", 2, time.Hour)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, time.Hour, mr.TTL("test:rl:register:1.2.3.4"))

	mr.FastForward(time.Hour)
	ok, err = limiter.Allow(ctx, "register:1.2.3.4", 2, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, limiter.Reset(ctx, "register:1.2.3.4"))
	count, err := store.Get(ctx, "register:1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestRedisStoreWindowAlwaysExpires(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := ratelimit.NewRedisStore(rdb, "test:")

	count, err := store.Increment(ctx, "login:10.0.0.1", 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 10*time.Minute, mr.TTL("test:rl:login:10.0.0.1"))

	mr.FastForward(4 * time.Minute)
	count, err = store.Increment(ctx, "login:10.0.0.1", 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, 6*time.Minute, mr.TTL("test:rl:login:10.0.0.1"))

	mr.FastForward(6 * time.Minute)
	count, err = store.Get(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

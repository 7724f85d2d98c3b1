package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, discardLogger()), mr
}

func TestRedisStoreFixedWindow(t *testing.T) {
	store, mr := newMiniredisStore(t)
	lim := New(store, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := lim.Allow(ctx, "192.168.1.10")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Count)
	}

	d, err := lim.Allow(ctx, "192.168.1.10")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, 60, d.RetryAfter(time.Now()), 1)

	assert.True(t, mr.Exists("ratelimit:192.168.1.10"))
	assert.Equal(t, "4", mustGet(t, mr, "ratelimit:192.168.1.10"))

	mr.FastForward(61 * time.Second)

	d, err = lim.Allow(ctx, "192.168.1.10")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Count)
}

func TestRedisStoreRepairsMissingTTL(t *testing.T) {
	store, mr := newMiniredisStore(t)
	require.NoError(t, mr.Set("ratelimit:stale", "7"))

	w, err := store.Hit(context.Background(), "stale", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(8), w.Count)
	assert.True(t, w.ResetAt.After(time.Now()))
	assert.Greater(t, mr.TTL("ratelimit:stale"), time.Duration(0))
}

func TestRedisStoreFallsBackWhenUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		DialTimeout:  20 * time.Millisecond,
		ReadTimeout:  20 * time.Millisecond,
		WriteTimeout: 20 * time.Millisecond,
		MaxRetries:   -1,
	})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	store := NewRedisStore(client, discardLogger())
	lim := New(store, 2, time.Minute)
	ctx := context.Background()

	first, err := lim.Allow(ctx, "10.1.1.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := lim.Allow(ctx, "10.1.1.1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)

	third, err := lim.Allow(ctx, "10.1.1.1")
	require.NoError(t, err)
	assert.False(t, third.Allowed, "local fallback must keep enforcing the limit")

	assert.Equal(t, gobreaker.StateOpen, store.breaker.State())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

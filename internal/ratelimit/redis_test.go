package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, WithKeyPrefix("test:rl:")), mr
}

func TestRedisStoreWindow(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	now := time.Now()

	for _, want := range []int{2, 1, 0} {
		res, err := s.Take(ctx, "X", 3, time.Minute, now)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
	}

	res, err := s.Take(ctx, "X", 3, time.Minute, now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60, res.WaitSeconds(now))
	assert.True(t, mr.Exists("test:rl:X"))

	mr.FastForward(61 * time.Second)
	res, err = s.Take(ctx, "X", 3, time.Minute, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()
	_, err := s.Take(context.Background(), "k", 1, time.Minute, time.Now())
	assert.Error(t, err)
}

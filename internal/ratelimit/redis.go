package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript counts one request unless the key is at its limit. The window
// starts at the first INCR and ends when the key expires.
var takeScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if cur >= limit then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], window)
    ttl = window
  end
  return {0, cur, ttl}
end
cur = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if cur == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, cur, ttl}
`)

// RedisStore shares windows between instances through Redis. Expiry is left to
// key TTLs, so it needs no janitor.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "reviewgen:ratelimit"}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	vals, err := takeScript.Run(ctx, s.rdb, []string{s.key(key)}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit take %s: %w", key, err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit take %s: unexpected reply %v", key, vals)
	}
	allowed, count, ttl := vals[0] == 1, int(vals[1]), time.Duration(vals[2])*time.Millisecond

	res := Result{Allowed: allowed, Limit: limit, ResetAt: now.Add(ttl)}
	if allowed {
		res.Remaining = max(limit-count, 0)
	}
	return res, nil
}

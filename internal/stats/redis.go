package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/reviewgen/pkg/types"
)

// Redis keeps a cumulative hash of "<store>|<outcome>" counters plus per-minute
// buckets that expire after ttl and back SummarySince.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type RedisOption func(*Redis)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "reviewgen:stats", ttl: 24 * time.Hour, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func field(store, outcome string) string { return store + "|" + outcome }

func (r *Redis) bucket(t time.Time) string {
	return fmt.Sprintf("%s:minute:%s", r.prefix, t.UTC().Format("200601021504"))
}

func (r *Redis) Record(ctx context.Context, ev Event) error {
	f := field(ev.StoreID, ev.Outcome)
	bucket := r.bucket(eventTime(ev))

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", f, 1)
	pipe.HIncrBy(ctx, bucket, f, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, bucket, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Summary(ctx context.Context) (types.StatsSummary, error) {
	all, err := r.rdb.HGetAll(ctx, r.prefix+":total").Result()
	if err != nil {
		return types.StatsSummary{}, err
	}
	counts := make(map[[2]string]int64, len(all))
	if err := addCounts(counts, all); err != nil {
		return types.StatsSummary{}, err
	}
	return summarize(counts), nil
}

// SummarySince adds up the minute buckets from since's minute to now. Buckets
// older than the TTL have expired, so the window is clamped to it.
func (r *Redis) SummarySince(ctx context.Context, since time.Time) (types.StatsSummary, error) {
	now := r.now()
	if r.ttl > 0 && now.Sub(since) > r.ttl {
		since = now.Add(-r.ttl)
	}

	pipe := r.rdb.Pipeline()
	var cmds []*redis.MapStringStringCmd
	for m := since.Truncate(time.Minute); !m.After(now); m = m.Add(time.Minute) {
		cmds = append(cmds, pipe.HGetAll(ctx, r.bucket(m)))
	}
	if len(cmds) == 0 {
		return summarize(nil), nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return types.StatsSummary{}, err
	}

	counts := make(map[[2]string]int64)
	for _, c := range cmds {
		if err := addCounts(counts, c.Val()); err != nil {
			return types.StatsSummary{}, err
		}
	}
	return summarize(counts), nil
}

func addCounts(counts map[[2]string]int64, fields map[string]string) error {
	for f, v := range fields {
		store, outcome, ok := strings.Cut(f, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("stats counter %s: %w", f, err)
		}
		counts[[2]string{store, outcome}] += n
	}
	return nil
}

// Package ratelimit implements a per-client fixed-window request limiter.
//
// A client may make at most Limit requests per Window. The first request after a
// window has expired starts a new one. Backends implement Store; the check and
// the increment happen in one atomic step per key.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	DefaultLimit      = 6
	DefaultWindow     = time.Minute
	DefaultSweepEvery = time.Minute
)

// Entry is the state kept per client identifier.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// expired reports whether the window is over. The reset instant itself still
// belongs to the old window.
func (e Entry) expired(now time.Time) bool {
	return now.After(e.ResetAt)
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied client has to wait.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// WaitSeconds rounds RetryAfter up to whole seconds.
func (r Result) WaitSeconds(now time.Time) int {
	return int(math.Ceil(r.RetryAfter(now).Seconds()))
}

// Store is a rate-limit backend.
type Store interface {
	// Take atomically checks the key's window and, when under limit, counts one request.
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

var ErrEmptyKey = errors.New("ratelimit: empty key")

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter returns a limiter over store. Non-positive limit or window fall
// back to the defaults.
func NewLimiter(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{store: store, limit: limit, window: window, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Limiter) Limit() int            { return l.limit }
func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) Now() time.Time        { return l.now() }

// Check counts one request for id.
func (l *Limiter) Check(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, ErrEmptyKey
	}
	return l.store.Take(ctx, id, l.limit, l.window, l.now())
}

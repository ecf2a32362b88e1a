package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLimiterWindow(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	l := NewLimiter(NewMemoryStore(), 3, time.Minute, WithClock(clk.Now))

	for _, want := range []int{2, 1, 0} {
		res, err := l.Check(ctx, "X")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	clk.Add(20 * time.Second)
	res, err := l.Check(ctx, "X")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 40, res.WaitSeconds(clk.Now()))

	// The reset instant still belongs to the old window.
	clk.Add(40 * time.Second)
	res, _ = l.Check(ctx, "X")
	assert.False(t, res.Allowed)

	clk.Add(time.Millisecond)
	res, err = l.Check(ctx, "X")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(NewMemoryStore(), 1, time.Minute)

	res, _ := l.Check(ctx, "a")
	assert.True(t, res.Allowed)
	res, _ = l.Check(ctx, "a")
	assert.False(t, res.Allowed)
	res, _ = l.Check(ctx, "b")
	assert.True(t, res.Allowed)
}

func TestLimiterDefaultsAndEmptyKey(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), 0, 0)
	assert.Equal(t, DefaultLimit, l.Limit())
	assert.Equal(t, DefaultWindow, l.Window())

	_, err := l.Check(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestWaitSecondsRoundsUp(t *testing.T) {
	now := time.Now()
	r := Result{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2, r.WaitSeconds(now))
	assert.Equal(t, 0, Result{ResetAt: now.Add(-time.Second)}.WaitSeconds(now))
}

func TestMemoryStoreConcurrentTakeNeverOverAdmits(t *testing.T) {
	const (
		limit = 6
		n     = 200
	)
	ctx := context.Background()
	l := NewLimiter(NewMemoryStore(), limit, time.Minute)

	var allowed, denied atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := l.Check(ctx, "same-client")
			if err != nil {
				t.Error(err)
				return
			}
			if res.Allowed {
				allowed.Add(1)
			} else {
				denied.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load())
	assert.Equal(t, int64(n-limit), denied.Load())
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	_, _ = s.Take(ctx, "old", 6, time.Second, now)
	_, _ = s.Take(ctx, "new", 6, time.Hour, now)
	require.Equal(t, 2, s.size())

	assert.Equal(t, 1, s.Sweep(now.Add(2*time.Second)))
	assert.Equal(t, 1, s.size())
	assert.Equal(t, 0, s.Sweep(now.Add(2*time.Second)))
}

func TestJanitorSweepsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := newClock()
	s := NewMemoryStore(WithSweepEvery(5*time.Millisecond), WithSweepClock(clk.Now))
	_, _ = s.Take(context.Background(), "k", 1, time.Second, clk.Now())
	clk.Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunJanitor(ctx) }()

	require.Eventually(t, func() bool { return s.size() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestJanitorDisabledWaitsForCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewMemoryStore(WithSweepEvery(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.RunJanitor(ctx)
		close(done)
	}()
	cancel()
	<-done
}

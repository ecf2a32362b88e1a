package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps windows in a process-local map.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	sweepEvery time.Duration
	now        func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithSweepEvery sets the janitor interval. Zero disables the janitor.
func WithSweepEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.sweepEvery = d }
}

// WithSweepClock replaces time.Now for janitor sweeps.
func WithSweepClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*Entry),
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		e = &Entry{Count: 1, ResetAt: now.Add(window)}
		s.entries[key] = e
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: e.ResetAt}, nil
	}
	if e.Count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: e.ResetAt}, nil
	}
	e.Count++
	return Result{Allowed: true, Limit: limit, Remaining: limit - e.Count, ResetAt: e.ResetAt}, nil
}

// Sweep drops expired windows and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunJanitor sweeps on a ticker until ctx is done. It returns nil on cancellation.
func (s *MemoryStore) RunJanitor(ctx context.Context) error {
	if s.sweepEvery <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(s.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep(s.now())
		}
	}
}

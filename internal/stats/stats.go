// Package stats records generation outcomes. Events carry the store, language,
// rating, outcome and latency only; review text, keywords, staff names and client
// identifiers are never recorded.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourorg/reviewgen/pkg/types"
)

// Outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeAuth        = "auth"
	OutcomeQuota       = "quota"
	OutcomeNetwork     = "network"
	OutcomeTimeout     = "timeout"
	OutcomeEmpty       = "empty"
	OutcomeUnknown     = "unknown"
)

// Backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Event struct {
	StoreID  string
	Language string
	Rating   int
	Outcome  string
	Latency  time.Duration
	At       time.Time
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

type Summarizer interface {
	Summary(ctx context.Context) (types.StatsSummary, error)
}

// WindowSummarizer summarizes events recorded at or after since.
type WindowSummarizer interface {
	SummarySince(ctx context.Context, since time.Time) (types.StatsSummary, error)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func summarize(counts map[[2]string]int64) types.StatsSummary {
	var s types.StatsSummary
	for k, n := range counts {
		s.Total += n
		s.Counts = append(s.Counts, types.OutcomeCount{StoreID: k[0], Outcome: k[1], Count: n})
	}
	sort.Slice(s.Counts, func(i, j int) bool {
		if s.Counts[i].StoreID != s.Counts[j].StoreID {
			return s.Counts[i].StoreID < s.Counts[j].StoreID
		}
		return s.Counts[i].Outcome < s.Counts[j].Outcome
	})
	return s
}

func eventTime(ev Event) time.Time {
	if ev.At.IsZero() {
		return time.Now()
	}
	return ev.At
}

// ValidBackend reports whether name is a known backend.
func ValidBackend(name string) error {
	switch name {
	case BackendNone, BackendMemory, BackendSQLite, BackendRedis:
		return nil
	}
	return fmt.Errorf("unknown stats backend %q", name)
}

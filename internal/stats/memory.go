package stats

import (
	"context"
	"sync"

	"github.com/yourorg/reviewgen/pkg/types"
)

// Memory counts outcomes per store in process memory.
type Memory struct {
	mu     sync.Mutex
	counts map[[2]string]int64
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[[2]string]int64)}
}

func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	m.counts[[2]string{ev.StoreID, ev.Outcome}]++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Summary(context.Context) (types.StatsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return summarize(m.counts), nil
}

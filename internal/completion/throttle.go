package completion

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourorg/reviewgen/pkg/types"
)

// Throttled paces calls to the wrapped Completer with a token bucket shared by
// all callers. The wait and the upstream call share one timeout; a wait that
// cannot finish within it fails as a timeout.
type Throttled struct {
	next    Completer
	lim     *rate.Limiter
	timeout time.Duration
}

// NewThrottled wraps next. A non-positive timeout leaves the caller's context as is.
func NewThrottled(next Completer, rps float64, burst int, timeout time.Duration) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst), timeout: timeout}
}

func (t *Throttled) Complete(ctx context.Context, system, user string, s types.Sampling) (string, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.lim.Wait(ctx); err != nil {
		return "", &Error{Kind: KindTimeout, Err: err}
	}
	return t.next.Complete(ctx, system, user, s)
}

package papersources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between calls to an external service.
// It is a one-token bucket: a single token refills once per interval, so
// consecutive Wait calls are spaced at least the interval apart while the
// first call passes immediately. It is safe for concurrent use because the
// underlying rate.Limiter is goroutine-safe.
//
// The external search API has undocumented rate limits; per-request call
// volume is small (at most 3-4 calls), so a fixed-interval gate is
// sufficient and keeps retry/backoff policy reasoned about separately from
// call sites.
type Gate struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewGate creates a gate with the given minimum spacing between calls.
// A non-positive interval yields a gate that never blocks.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next call is allowed or the context is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// Interval returns the configured minimum spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

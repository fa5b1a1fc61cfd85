package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// RateLimitedExecutor runs tasks with bounded concurrency and a token-bucket rate limit.
// Each orchestrator owns its own instance.
type RateLimitedExecutor struct {
	limiter     *rate.Limiter
	concurrency int
}

// NewRateLimitedExecutor allows rps task starts per second with the given burst,
// and at most concurrency tasks in flight. rps <= 0 disables rate limiting.
func NewRateLimitedExecutor(rps float64, burst, concurrency int) *RateLimitedExecutor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedExecutor{
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: concurrency,
	}
}

// Wait blocks until the limiter allows one event, or ctx is done.
func (e *RateLimitedExecutor) Wait(ctx context.Context) error {
	r := e.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// ForEach calls fn for every index in [0, n). Task errors do not stop the other tasks;
// only a cancelled context is returned.
func (e *RateLimitedExecutor) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < n; i++ {
		if err := e.Wait(gctx); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

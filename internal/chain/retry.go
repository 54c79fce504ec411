package chain

import (
	"context"
	"time"
)

const (
	defaultRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// backoff retries retryable node errors with doubling waits capped at maxRetryDelay.
type backoff struct {
	retries int
	base    time.Duration
	// onRetry runs before each wait.
	onRetry func(attempt int, wait time.Duration, err error)
}

func (b backoff) run(ctx context.Context, fn func(context.Context) error) error {
	wait := b.base
	if wait <= 0 {
		wait = defaultRetryDelay
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > b.retries || !retryable(err) || ctx.Err() != nil {
			return err
		}
		if b.onRetry != nil {
			b.onRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, maxRetryDelay)
	}
}

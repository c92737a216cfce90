package llm

import (
	"context"
	"errors"
	"time"
)

// Default retry configuration.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// RetryPolicy is a bounded exponential-backoff policy applied at call sites
// that may fail with ErrRateLimited. Any other error is returned immediately.
//
// The zero value is usable and applies the package defaults.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt. Attempt n waits
	// BaseDelay * 2^(n-1). Zero means DefaultBaseDelay.
	BaseDelay time.Duration

	// Sleep overrides the wait between attempts. Used by tests; when nil,
	// a context-aware timer sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do invokes fn until it succeeds, fails with a non-retryable error, or the
// attempt ceiling is reached. When the ceiling is reached the last error is
// returned still matching ErrRateLimited so callers can convert it to a
// fatal task failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := base << (attempt - 1)
			if serr := sleep(ctx, delay); serr != nil {
				return serr
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package retry provides a bounded exponential-backoff combinator used to
// harden calls against transient provider failures.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy controls how Do spaces and bounds its attempts. MaxRetries bounds
// the total number of attempts, not the number of re-tries after the first.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterFrac float64
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		JitterFrac: 0.2,
	}
}

// Do runs op until it succeeds or the policy is exhausted. The wait before
// attempt n+1 is BaseDelay * 2^(n-1), capped at MaxDelay, with ±JitterFrac
// multiplicative jitter. Waits select on ctx so cancellation aborts promptly.
// The last error is returned annotated with the attempt count.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted on attempt %d: %w", attempt, err)
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if waitErr := wait(ctx, delayFor(p, attempt)); waitErr != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, waitErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

// delayFor computes the backoff before the attempt following attempt n
// (1-based): exponential growth from BaseDelay, capped, then jittered.
func delayFor(p Policy, attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFrac > 0 {
		factor := 1 + p.JitterFrac*(2*rand.Float64()-1)
		d = time.Duration(float64(d) * factor)
	}
	if d < 0 {
		d = 0
	}
	return d
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

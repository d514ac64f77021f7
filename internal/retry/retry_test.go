package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// ─── Do ───────────────────────────────────────────────────────────────────────

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterFrac: 0.2}
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	cause := errors.New("provider down")
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if !errors.Is(err, cause) {
		t.Errorf("final error should wrap the cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("final error should carry the attempt count, got %q", err.Error())
	}
}

func TestDoZeroRetriesMeansOneAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoAbortsOnCancelDuringWait(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(ctx, p, func(ctx context.Context) error {
		return errors.New("transient")
	})
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("cancellation took %v, should abort the backoff wait promptly", elapsed)
	}
}

func TestDoCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, DefaultPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("op should not run on a cancelled context, ran %d times", calls)
	}
}

// ─── Backoff schedule ─────────────────────────────────────────────────────────

func TestDelayForGrowthAndCap(t *testing.T) {
	p := Policy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		attempt := i + 1
		if got := delayFor(p, attempt); got != w {
			t.Errorf("delayFor(attempt=%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestDelayForJitterBounds(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second, JitterFrac: 0.2}

	// Attempt 3 has a 4s base; jitter keeps it within ±20%.
	lo, hi := 3200*time.Millisecond, 4800*time.Millisecond
	for i := 0; i < 200; i++ {
		d := delayFor(p, 3)
		if d < lo || d > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, lo, hi)
		}
	}
}

func TestDelayForZeroBase(t *testing.T) {
	if d := delayFor(Policy{MaxRetries: 3}, 2); d != 0 {
		t.Errorf("zero base delay should produce no wait, got %v", d)
	}
}

package ratelimit_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"clinic-booking-api/internal/ratelimit"
)

func newLimiter(t *testing.T) (*ratelimit.LoginLimiter, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	return ratelimit.NewLoginLimiter(clock, zap.NewNop().Sugar()), clock
}

func TestAllowsUpToMaxAttempts(t *testing.T) {
	l, _ := newLimiter(t)

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		if err := l.CheckAllowed("10.0.0.1"); err != nil {
			t.Fatalf("attempt %d unexpectedly blocked: %v", i+1, err)
		}
		l.RecordFailure("10.0.0.1")
	}

	err := l.CheckAllowed("10.0.0.1")
	var limited *ratelimit.LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected LimitedError after %d failures, got %v", ratelimit.DefaultMaxAttempts, err)
	}
	if limited.RetryAfter <= 0 {
		t.Errorf("retry-after must be positive, got %v", limited.RetryAfter)
	}
}

func TestClearReenablesImmediately(t *testing.T) {
	l, _ := newLimiter(t)

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		l.RecordFailure("10.0.0.1")
	}
	if err := l.CheckAllowed("10.0.0.1"); err == nil {
		t.Fatal("expected block before clear")
	}

	l.ClearAttempts("10.0.0.1")
	if err := l.CheckAllowed("10.0.0.1"); err != nil {
		t.Fatalf("expected allow after clear, got %v", err)
	}
}

func TestLockoutSlidesWithNewFailures(t *testing.T) {
	l, clock := newLimiter(t)

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		l.RecordFailure("10.0.0.1")
	}
	if err := l.CheckAllowed("10.0.0.1"); err == nil {
		t.Fatal("expected lockout")
	}

	// a failure during lockout pushes the lockout forward
	clock.Advance(20 * time.Minute)
	l.RecordFailure("10.0.0.1")
	clock.Advance(25 * time.Minute) // 45m after engage, 25m after last failure

	err := l.CheckAllowed("10.0.0.1")
	var limited *ratelimit.LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected extended lockout, got %v", err)
	}
	if limited.RetryAfter > ratelimit.DefaultLockout {
		t.Errorf("retry-after %v exceeds lockout period", limited.RetryAfter)
	}
}

func TestLockoutExpires(t *testing.T) {
	l, clock := newLimiter(t)

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		l.RecordFailure("10.0.0.1")
	}
	if err := l.CheckAllowed("10.0.0.1"); err == nil {
		t.Fatal("expected lockout")
	}

	clock.Advance(ratelimit.DefaultLockout + time.Minute)
	if err := l.CheckAllowed("10.0.0.1"); err != nil {
		t.Fatalf("expected allow after lockout expiry, got %v", err)
	}
}

func TestWindowPrunesOldFailures(t *testing.T) {
	l, clock := newLimiter(t)

	// spread failures so they fall out of the window before reaching max
	for i := 0; i < ratelimit.DefaultMaxAttempts-1; i++ {
		l.RecordFailure("10.0.0.1")
	}
	clock.Advance(ratelimit.DefaultWindow + time.Minute)
	l.RecordFailure("10.0.0.1")

	if err := l.CheckAllowed("10.0.0.1"); err != nil {
		t.Fatalf("old failures should have been pruned, got %v", err)
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l, _ := newLimiter(t)

	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		l.RecordFailure("10.0.0.1")
	}
	if err := l.CheckAllowed("10.0.0.1"); err == nil {
		t.Fatal("expected block for first identity")
	}
	if err := l.CheckAllowed("10.0.0.2"); err != nil {
		t.Fatalf("second identity should be unaffected: %v", err)
	}
}

func TestConcurrentFailuresNotLost(t *testing.T) {
	l, _ := newLimiter(t)

	var wg sync.WaitGroup
	for i := 0; i < ratelimit.DefaultMaxAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordFailure("10.0.0.1")
		}()
	}
	wg.Wait()

	if err := l.CheckAllowed("10.0.0.1"); err == nil {
		t.Fatalf("all %d concurrent failures must be counted", ratelimit.DefaultMaxAttempts)
	}
}

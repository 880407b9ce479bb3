// Package ratelimit guards the login path: a sliding-window failure
// counter with lockout per client identity, plus a general per-client
// request throttle.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// LimitedError is returned when an identity is blocked. RetryAfter is a
// hint for the client, rounded up to whole seconds by the caller.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
	DefaultLockout     = 30 * time.Minute
)

// window tracks failures for one identity. Each identity has its own
// lock so clients never contend with each other.
type window struct {
	mu       sync.Mutex
	failures []time.Time
	locked   bool
	lastFail time.Time
}

// LoginLimiter tracks failed login attempts per client identity. State
// lives for the process lifetime only; a restart clears everything.
type LoginLimiter struct {
	clock       clockwork.Clock
	logger      *zap.SugaredLogger
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	identities  sync.Map // identity -> *window
}

func NewLoginLimiter(clock clockwork.Clock, logger *zap.SugaredLogger) *LoginLimiter {
	return &LoginLimiter{
		clock:       clock,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
		lockout:     DefaultLockout,
	}
}

func (l *LoginLimiter) get(identity string) *window {
	w, _ := l.identities.LoadOrStore(identity, &window{})
	return w.(*window)
}

// CheckAllowed reports whether the identity may attempt a login. Blocks
// while the identity is locked out (the lockout slides forward with each
// new failure) or once the pruned window holds maxAttempts failures.
func (l *LoginLimiter) CheckAllowed(identity string) error {
	w := l.get(identity)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.clock.Now()
	w.prune(now.Add(-l.window))

	if w.locked {
		since := now.Sub(w.lastFail)
		if since < l.lockout {
			return &LimitedError{RetryAfter: l.lockout - since}
		}
		w.locked = false
	}

	if len(w.failures) >= l.maxAttempts {
		w.locked = true
		l.logger.Warnw("login lockout engaged", "identity", identity, "failures", len(w.failures))
		return &LimitedError{RetryAfter: l.lockout - now.Sub(w.lastFail)}
	}
	return nil
}

// RecordFailure appends a failed attempt. Called only after the
// credential gate rejects the attempt.
func (l *LoginLimiter) RecordFailure(identity string) {
	w := l.get(identity)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.clock.Now()
	w.failures = append(w.failures, now)
	w.lastFail = now
	l.logger.Infow("failed login recorded", "identity", identity)
}

// ClearAttempts drops all state for the identity. Called only after a
// successful authentication.
func (l *LoginLimiter) ClearAttempts(identity string) {
	l.identities.Delete(identity)
}

// prune drops failures older than the window start. Lazy, no sweeper.
func (w *window) prune(cutoff time.Time) {
	kept := w.failures[:0]
	for _, t := range w.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.failures = kept
}

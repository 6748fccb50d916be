package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/apiredirector/gateway/internal/observability"
)

// FixedWindowLimiter counts requests per key in fixed windows. The
// window for a key opens on its first request and closes Window later;
// windows are not aligned to wall-clock boundaries.
//
// Fixed windows permit a boundary burst: a key can spend its full
// budget at the end of one window and again at the start of the next,
// so up to 2x the limit may land inside a single Window-sized span
// straddling the reset. This is an accepted approximation; callers
// needing smooth admission should use a sliding window or token
// bucket instead.
type FixedWindowLimiter struct {
	logger observability.Logger
	now    func() time.Time

	counters sync.Map
}

// windowCounter tracks a single key's counter within its window.
type windowCounter struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// FixedWindowOption configures a FixedWindowLimiter.
type FixedWindowOption func(*FixedWindowLimiter)

// WithLogger sets the limiter logger.
func WithLogger(logger observability.Logger) FixedWindowOption {
	return func(l *FixedWindowLimiter) { l.logger = logger }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) FixedWindowOption {
	return func(l *FixedWindowLimiter) { l.now = now }
}

// NewFixedWindowLimiter creates an in-memory fixed window limiter.
func NewFixedWindowLimiter(opts ...FixedWindowOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter. The check and increment happen under the
// counter's lock, so concurrent callers can never push a key past its
// limit.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return &Result{
			Allowed:   true,
			Limit:     limit.Requests,
			Remaining: limit.Requests,
			ResetAt:   l.now().Add(limit.Window),
		}, nil
	}

	now := l.now()

	value, _ := l.counters.LoadOrStore(key, &windowCounter{})
	wc := value.(*windowCounter)

	wc.mu.Lock()
	defer wc.mu.Unlock()

	// Expired or never-started window: a fresh one opens now.
	if !now.Before(wc.resetAt) {
		wc.count = 0
		wc.resetAt = now.Add(limit.Window)
	}

	allowed := wc.count < limit.Requests
	if allowed {
		wc.count++
	} else {
		// Keys can be credential secrets, so they stay out of logs.
		l.logger.Debug("rate limit exceeded",
			observability.Int("limit", limit.Requests),
			observability.Time("reset_at", wc.resetAt),
		)
	}

	remaining := limit.Requests - wc.count
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   allowed,
		Limit:     limit.Requests,
		Remaining: remaining,
		ResetAt:   wc.resetAt,
	}, nil
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(_ context.Context, key string) error {
	l.counters.Delete(key)
	return nil
}

// Cleanup removes counters whose windows expired before the given
// cutoff. Callers run it periodically to bound memory on churning key
// sets.
func (l *FixedWindowLimiter) Cleanup(cutoff time.Time) int {
	removed := 0
	l.counters.Range(func(key, value any) bool {
		wc := value.(*windowCounter)
		wc.mu.Lock()
		expired := wc.resetAt.Before(cutoff)
		wc.mu.Unlock()
		if expired {
			l.counters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// StartCleanup runs Cleanup on the given interval until the context is
// cancelled.
func (l *FixedWindowLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup(l.now())
			}
		}
	}()
}

// Package ratelimit provides per-credential request quota enforcement
// using a fixed window counter.
package ratelimit

import (
	"context"
	"time"
)

// Limit is the quota applied to a single key.
type Limit struct {
	// Requests is the maximum number of requests allowed in the window.
	Requests int

	// Window is the length of the counting window.
	Window time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when the current window expires and the counter
	// starts over.
	ResetAt time.Time
}

// Limiter checks whether a request identified by key fits within the
// given quota.
type Limiter interface {
	// Allow atomically checks and consumes one request for key. A
	// denied request does not consume quota.
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)

	// Reset clears the counter state for key.
	Reset(ctx context.Context, key string) error
}

// NoopLimiter allows every request. Used when rate limiting is
// disabled.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (*NoopLimiter) Allow(_ context.Context, _ string, limit Limit) (*Result, error) {
	return &Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests,
		ResetAt:   time.Now().Add(limit.Window),
	}, nil
}

func (*NoopLimiter) Reset(context.Context, string) error {
	return nil
}

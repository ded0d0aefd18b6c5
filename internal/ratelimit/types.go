package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is the rejection surfaced to callers when a denied Result
// is reported as an error.
var ErrRateLimited = errors.New("rate limit exceeded")

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// ResetIn returns the seconds left until the window resets, floored at zero.
func (r Result) ResetIn(now time.Time) int {
	if r.Reset.IsZero() || !now.Before(r.Reset) {
		return 0
	}
	return int(r.Reset.Sub(now).Round(time.Second) / time.Second)
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

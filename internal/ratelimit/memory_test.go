package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFirstRequestAllowed(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result, err := limiter.Allow(context.Background(), "u:alpha", 20, time.Minute, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected first request allowed")
	}
	if result.Remaining != 19 {
		t.Fatalf("expected remaining=19, got %d", result.Remaining)
	}
	if !result.Reset.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected reset=%s, got %s", now.Add(time.Minute), result.Reset)
	}
}

func TestMemoryLimiterRejectsOverLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		result, err := limiter.Allow(context.Background(), "u:alpha", 20, time.Minute, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}

	result, err := limiter.Allow(context.Background(), "u:alpha", 20, time.Minute, now.Add(30*time.Second))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Allowed {
		t.Fatal("expected 21st request rejected")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", result.Remaining)
	}
	if got := result.ResetIn(now.Add(30 * time.Second)); got != 30 {
		t.Fatalf("expected 30s until reset, got %d", got)
	}
}

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		if _, err := limiter.Allow(context.Background(), "u:alpha", 20, time.Minute, now); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}

	later := now.Add(time.Minute)
	result, err := limiter.Allow(context.Background(), "u:alpha", 20, time.Minute, later)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected request allowed in fresh window")
	}
	if result.Remaining != 19 {
		t.Fatalf("expected fresh count of 1 (remaining=19), got remaining=%d", result.Remaining)
	}
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := limiter.Allow(context.Background(), "u:alpha", 1, time.Minute, now); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	blocked, _ := limiter.Allow(context.Background(), "u:alpha", 1, time.Minute, now)
	if blocked.Allowed {
		t.Fatal("expected alpha blocked")
	}
	other, _ := limiter.Allow(context.Background(), "u:beta", 1, time.Minute, now)
	if !other.Allowed {
		t.Fatal("expected beta unaffected by alpha's window")
	}
}

func TestMemoryLimiterSweepEvictsExpired(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, key := range []string{"u:a", "u:b", "u:c"} {
		if _, err := limiter.Allow(context.Background(), key, 5, time.Minute, now); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}

	// A call two sweep intervals later triggers the amortized sweep.
	later := now.Add(2 * sweepInterval)
	if _, err := limiter.Allow(context.Background(), "u:d", 5, time.Minute, later); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	limiter.mu.Lock()
	size := len(limiter.counters)
	limiter.mu.Unlock()
	if size != 1 {
		t.Fatalf("expected expired entries evicted, counters=%d", size)
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter()
	result, err := limiter.Allow(context.Background(), "u:alpha", 0, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected zero limit to disable the check")
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often expired entries are evicted.
const sweepInterval = 60 * time.Second

type memoryEntry struct {
	expiry time.Time
	count  int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter. It is a
// single-process, best-effort guard against request storms; the monthly
// quota service remains the authoritative limit. State is lost on restart.
type MemoryLimiter struct {
	mu        sync.Mutex
	counters  map[string]*memoryEntry
	lastSweep time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request should be allowed in the current window.
// A fresh or expired entry always allows and opens a new window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	if window <= 0 {
		window = sweepInterval
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	entry := l.counters[key]
	if entry == nil || !now.Before(entry.expiry) {
		entry = &memoryEntry{expiry: now.Add(window), count: 1}
		l.counters[key] = entry
		return Result{Allowed: true, Remaining: limit - 1, Reset: entry.expiry}, nil
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: entry.expiry}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: entry.expiry}, nil
}

// sweepLocked evicts expired entries at most once per sweepInterval. The
// amortized sweep bounds memory growth from one-shot keys without a
// background task. Caller holds the mutex.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, entry := range l.counters {
		if !now.Before(entry.expiry) {
			delete(l.counters, key)
		}
	}
}

package security

import (
	"strings"
	"sync"
	"time"
)

// Limit is the budget for one guarded operation: at most Max attempts per
// sliding Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Limiter is a sliding-window rate limiter keyed by (operation, identifier).
// The identifier is the submitted email/phone/code, not the caller's network
// address alone, so guessing many codes from one address and hammering one
// guest's contact from many addresses are both throttled.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	limits  map[string]Limit
	now     func() time.Time
}

// NewLimiter creates a limiter with per-operation budgets and starts the
// background pruning of idle buckets.
func NewLimiter(limits map[string]Limit) *Limiter {
	l := &Limiter{
		buckets: make(map[string][]time.Time),
		limits:  limits,
		now:     time.Now,
	}
	go l.cleanup()
	return l
}

// Allow records an attempt for (op, identifier) and reports whether it is
// within budget. Unknown operations are never throttled.
func (l *Limiter) Allow(op, identifier string) bool {
	limit, ok := l.limits[op]
	if !ok || limit.Max <= 0 {
		return true
	}

	key := op + ":" + strings.ToLower(strings.TrimSpace(identifier))
	now := l.now()
	cutoff := now.Add(-limit.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]

	// Drop attempts that slid out of the window.
	keep := bucket[:0]
	for _, t := range bucket {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}

	if len(keep) >= limit.Max {
		l.buckets[key] = keep
		return false
	}

	l.buckets[key] = append(keep, now)
	return true
}

// cleanup removes buckets whose newest attempt is older than any window,
// to prevent unbounded growth from one-off identifiers.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	var maxWindow time.Duration
	for _, limit := range l.limits {
		if limit.Window > maxWindow {
			maxWindow = limit.Window
		}
	}

	for range ticker.C {
		cutoff := l.now().Add(-2 * maxWindow)
		l.mu.Lock()
		for key, bucket := range l.buckets {
			if len(bucket) == 0 || bucket[len(bucket)-1].Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

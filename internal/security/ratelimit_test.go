package security

import (
	"testing"
	"time"
)

func newTestLimiter(limits map[string]Limit) (*Limiter, *time.Time) {
	l := &Limiter{
		buckets: make(map[string][]time.Time),
		limits:  limits,
	}
	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(map[string]Limit{
		"login": {Max: 3, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		if !l.Allow("login", "ana@example.com") {
			t.Fatalf("attempt %d blocked, want allowed", i+1)
		}
	}
	if l.Allow("login", "ana@example.com") {
		t.Error("attempt over budget allowed, want blocked")
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(map[string]Limit{
		"login": {Max: 2, Window: time.Minute},
	})

	l.Allow("login", "ana@example.com")
	l.Allow("login", "ana@example.com")
	if l.Allow("login", "ana@example.com") {
		t.Fatal("third attempt allowed inside window")
	}

	*clock = clock.Add(61 * time.Second)
	if !l.Allow("login", "ana@example.com") {
		t.Error("attempt blocked after window slid past earlier attempts")
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]Limit{
		"login": {Max: 1, Window: time.Minute},
	})

	if !l.Allow("login", "ana@example.com") {
		t.Fatal("first identifier blocked")
	}
	if l.Allow("login", "ana@example.com") {
		t.Fatal("first identifier not throttled")
	}
	if !l.Allow("login", "ion@example.com") {
		t.Error("second identifier throttled by the first's attempts")
	}
}

func TestOperationsHaveSeparateBudgets(t *testing.T) {
	l, _ := newTestLimiter(map[string]Limit{
		"login":   {Max: 1, Window: time.Minute},
		"recover": {Max: 1, Window: time.Minute},
	})

	l.Allow("login", "ana@example.com")
	if l.Allow("login", "ana@example.com") {
		t.Fatal("login not throttled")
	}
	if !l.Allow("recover", "ana@example.com") {
		t.Error("recover throttled by login attempts")
	}
}

func TestIdentifierNormalization(t *testing.T) {
	l, _ := newTestLimiter(map[string]Limit{
		"login": {Max: 1, Window: time.Minute},
	})

	l.Allow("login", "Ana@Example.com")
	if l.Allow("login", "  ana@example.com ") {
		t.Error("case and whitespace variants of one identifier got separate budgets")
	}
}

func TestUnknownOperationNeverThrottled(t *testing.T) {
	l, _ := newTestLimiter(map[string]Limit{})

	for i := 0; i < 100; i++ {
		if !l.Allow("something-else", "ana@example.com") {
			t.Fatal("unknown operation throttled")
		}
	}
}

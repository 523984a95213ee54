package ratelimit

import (
	"testing"
	"time"
)

// newTestLimiter returns a limiter with a controllable clock.
func newTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	l := New(Config{MaxRequests: max, Window: window})
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinQuota(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Second)
	want := []bool{true, true, true, false}
	for i, w := range want {
		if got := l.Allow("host"); got != w {
			t.Errorf("call %d: Allow = %v, want %v", i+1, got, w)
		}
	}
}

func TestDeniedCallDoesNotMutateState(t *testing.T) {
	l, now := newTestLimiter(t, 1, time.Second)
	l.Allow("host")
	// Hammer the denied path; the single retained timestamp must still
	// expire on schedule.
	for range 10 {
		if l.Allow("host") {
			t.Fatal("expected denial")
		}
	}
	*now = now.Add(1100 * time.Millisecond)
	if !l.Allow("host") {
		t.Error("expected allowance after window elapsed")
	}
}

func TestWindowSlides(t *testing.T) {
	l, now := newTestLimiter(t, 3, time.Second)
	for range 3 {
		l.Allow("host")
	}
	if l.Allow("host") {
		t.Fatal("expected denial at quota")
	}
	*now = now.Add(1001 * time.Millisecond)
	if !l.Allow("host") {
		t.Error("expected allowance after window slid past first request")
	}
}

func TestIndependentIdentifiers(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	if !l.Allow("a") {
		t.Fatal("first id should be allowed")
	}
	if !l.Allow("b") {
		t.Error("distinct identifiers must not share quota")
	}
	if l.Allow("a") {
		t.Error("first id should now be at quota")
	}
}

func TestTimeUntilReset(t *testing.T) {
	l, now := newTestLimiter(t, 1, time.Minute)
	if got := l.TimeUntilReset("host"); got != 0 {
		t.Errorf("expected 0 for untracked id, got %s", got)
	}
	l.Allow("host")
	*now = now.Add(20 * time.Second)
	got := l.TimeUntilReset("host")
	if got != 40*time.Second {
		t.Errorf("expected 40s until reset, got %s", got)
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	l.Allow("host")
	l.Reset()
	if !l.Allow("host") {
		t.Error("expected allowance after reset")
	}
}

func TestDefaults(t *testing.T) {
	l := New(Config{})
	if l.cfg.MaxRequests != defaultMaxRequests {
		t.Errorf("expected default max %d, got %d", defaultMaxRequests, l.cfg.MaxRequests)
	}
	if l.cfg.Window != defaultWindow {
		t.Errorf("expected default window %s, got %s", defaultWindow, l.cfg.Window)
	}
}

func TestConcurrentAllow(t *testing.T) {
	l := New(Config{MaxRequests: 50, Window: time.Minute})
	done := make(chan bool)
	for range 100 {
		go func() {
			done <- l.Allow("host")
		}()
	}
	allowed := 0
	for range 100 {
		if <-done {
			allowed++
		}
	}
	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed under contention, got %d", allowed)
	}
}

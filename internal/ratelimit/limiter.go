// Package ratelimit implements sliding-window rate limiting keyed by an
// identifier (hostname, client id). Every retained timestamp lies within
// the trailing window; pruning happens lazily on each check.
package ratelimit

import (
	"sync"
	"time"
)

// defaultMaxRequests is the general-purpose limit when none is configured.
const defaultMaxRequests = 3

// defaultWindow is the general-purpose window when none is configured.
const defaultWindow = 1 * time.Second

// Config holds limiter construction parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter tracks request timestamps per identifier. Distinct identifiers
// have independent quotas. Safe for concurrent use.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time // injectable clock for tests
}

// New creates a Limiter. Non-positive values fall back to the
// general-purpose defaults.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether a request for id fits in the current window.
// On success the request is recorded; on failure state is unchanged.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	if len(l.windows[id]) >= l.cfg.MaxRequests {
		return false
	}
	l.windows[id] = append(l.windows[id], now)
	return true
}

// TimeUntilReset returns how long until the oldest retained request for id
// leaves the window. Zero when the identifier has quota available.
func (l *Limiter) TimeUntilReset(id string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	ts := l.windows[id]
	if len(ts) == 0 {
		return 0
	}
	wait := ts[0].Add(l.cfg.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Reset clears all tracked identifiers.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}

// pruneLocked drops timestamps older than now-window for every identifier.
// Caller holds the mutex.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	for id, ts := range l.windows {
		keep := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(l.windows, id)
			continue
		}
		l.windows[id] = keep
	}
}

package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps token buckets in process memory. Entries idle for longer
// than staleAfter are swept on later calls.
type LocalLimiter struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	staleAfter time.Duration
	lastSweep  time.Time
}

func NewLocalLimiter(staleAfter time.Duration) *LocalLimiter {
	return &LocalLimiter{
		entries:    make(map[string]*limiterEntry),
		staleAfter: staleAfter,
		lastSweep:  time.Now(),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, cfg *RateLimiterConfig) (bool, time.Duration, error) {
	now := time.Now()
	lim := l.getOrCreate(key, cfg, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (l *LocalLimiter) getOrCreate(key string, cfg *RateLimiterConfig, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.staleAfter {
		l.sweep(now)
	}

	if e, ok := l.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(rate.Limit(cfg.RefillRate), cfg.Capacity)
	l.entries[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

// sweep drops idle entries. Callers hold mu.
func (l *LocalLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.staleAfter)
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
	l.lastSweep = now
}

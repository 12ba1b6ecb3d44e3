package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests per key (typically a provider host).
// Every key gets its own token bucket refilled once per interval with burst 1.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*rate.Limiter
	interval time.Duration
}

// New returns a limiter allowing one request per interval for each key.
// A non-positive interval disables pacing.
func New(interval time.Duration) *Limiter {
	return &Limiter{m: make(map[string]*rate.Limiter), interval: interval}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.m[key] = lim
	}
	return lim
}

// Wait blocks until a request for key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}
	return l.get(key).Wait(ctx)
}

// Allow returns true if one request for key can go out right now.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.interval <= 0 {
		return true
	}
	return l.get(key).Allow()
}

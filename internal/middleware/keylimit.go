package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type keyFailures struct {
	count       int
	windowStart time.Time
}

// KeyFailureLimiter counts invalid station key attempts per client within a
// fixed window.
type KeyFailureLimiter struct {
	maxFailures int
	window      time.Duration

	mu       sync.Mutex
	failures map[string]*keyFailures
}

func NewKeyFailureLimiter(maxFailures int, window time.Duration) *KeyFailureLimiter {
	return &KeyFailureLimiter{
		maxFailures: maxFailures,
		window:      window,
		failures:    make(map[string]*keyFailures),
	}
}

// Sweep forgets clients whose window has passed.
func (l *KeyFailureLimiter) Sweep(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var removed int64
	for ip, f := range l.failures {
		if now.Sub(f.windowStart) > l.window {
			delete(l.failures, ip)
			removed++
		}
	}
	return removed, nil
}

func (l *KeyFailureLimiter) Blocked(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	f, ok := l.failures[ip]
	if !ok || now.Sub(f.windowStart) > l.window {
		return false
	}
	return f.count >= l.maxFailures
}

func (l *KeyFailureLimiter) Record(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	f, ok := l.failures[ip]
	if !ok || now.Sub(f.windowStart) > l.window {
		l.failures[ip] = &keyFailures{count: 1, windowStart: now}
		return
	}
	f.count++
}

func (l *KeyFailureLimiter) RetryAfter() string {
	return strconv.Itoa(int(l.window.Seconds()))
}

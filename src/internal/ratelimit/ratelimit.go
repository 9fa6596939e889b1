// Package ratelimit keeps one token bucket per key. The transport keys it by
// catalog or relay host so a fallback chain cannot burst the same upstream;
// the API keys it by client IP.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter hands out tokens per key. Buckets are created on first use
// and live as long as the limiter; the key space is the configured relays
// and endpoints, or the API's clients.
type KeyedLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New allows rps tokens per second per key, up to burst at once. A
// non-positive rps makes every call pass immediately.
func New(rps float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &KeyedLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Allow takes a token for key if one is available, without blocking.
// The API middleware uses it to answer 429.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait blocks until key has a token. It fails early, without waiting, when
// the token would only arrive after ctx's deadline.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

func (l *KeyedLimiter) bucket(key string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[key]; ok {
		return b
	}
	b = rate.NewLimiter(l.limit, l.burst)
	l.buckets[key] = b
	return b
}

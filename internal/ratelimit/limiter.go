// Package ratelimit throttles callers per key over a fixed window.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether key may make another request
type Limiter interface {
	Allow(key string, limit int) Decision
}

// DefaultMaxKeys bounds the number of buckets an InMemoryLimiter keeps
const DefaultMaxKeys = 100_000

// InMemoryLimiter is a per-process token bucket per key
type InMemoryLimiter struct {
	// MaxKeys caps tracked keys; past it the least recently seen bucket is dropped
	MaxKeys int

	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*bucket
	lastGC  time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// NewInMemory creates a limiter refilling limit tokens per window
func NewInMemory(window time.Duration) *InMemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &InMemoryLimiter{
		MaxKeys: DefaultMaxKeys,
		window:  window,
		buckets: make(map[string]*bucket),
		lastGC:  time.Now(),
	}
}

// Allow consumes one token for key
func (l *InMemoryLimiter) Allow(key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gcLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		l.makeRoomLocked(now)
	}
	if !ok || b.limit != limit {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(limit)), limit),
			limit:   limit,
		}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// time until the bucket is full again
	missing := float64(limit) - tokens
	resetAt := now
	if missing > 0 {
		resetAt = now.Add(time.Duration(missing * float64(l.window) / float64(limit)))
	}

	return Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt.UTC(),
	}
}

// makeRoomLocked keeps the bucket count below MaxKeys before a new key is added
func (l *InMemoryLimiter) makeRoomLocked(now time.Time) {
	if l.MaxKeys <= 0 || len(l.buckets) < l.MaxKeys {
		return
	}

	l.lastGC = time.Time{}
	l.gcLocked(now)

	for len(l.buckets) >= l.MaxKeys {
		var (
			oldestKey string
			oldest    time.Time
			found     bool
		)
		for key, b := range l.buckets {
			if !found || b.lastSeen.Before(oldest) {
				oldestKey, oldest, found = key, b.lastSeen, true
			}
		}
		delete(l.buckets, oldestKey)
	}
}

// gcLocked drops buckets idle for more than a window; a fresh bucket is
// full, so dropping them changes nothing for the caller
func (l *InMemoryLimiter) gcLocked(now time.Time) {
	if now.Sub(l.lastGC) < l.window {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, key)
		}
	}
	l.lastGC = now
}

// internal/api/ratelimit.go
package api

import (
	"sync"
	"time"
)

type LimitClass string

const (
	ClassGeneral  LimitClass = "general"
	ClassAuth     LimitClass = "auth"
	ClassTransfer LimitClass = "transfer"
)

// sweepThreshold bounds the bucket map; once crossed, expired windows are
// dropped on the next Allow call.
const sweepThreshold = 10_000

type bucket struct {
	count int
	reset time.Time
}

// RateLimiter is a fixed-window counter keyed by caller identity and
// endpoint class. It is deliberately process-local: replicas do not share
// quota.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	quotas  map[LimitClass]int
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(window time.Duration, general, auth, transfer int) *RateLimiter {
	return &RateLimiter{
		window: window,
		quotas: map[LimitClass]int{
			ClassGeneral:  general,
			ClassAuth:     auth,
			ClassTransfer: transfer,
		},
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one unit of identity's quota for class. When the quota is
// exhausted it reports how long the caller should wait before retrying.
func (l *RateLimiter) Allow(identity string, class LimitClass) (remaining int, retryAfter time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) > sweepThreshold {
		l.sweep(now)
	}

	quota := l.quotas[class]
	key := string(class) + "|" + identity

	b, exists := l.buckets[key]
	if !exists || now.After(b.reset) {
		b = &bucket{reset: now.Add(l.window)}
		l.buckets[key] = b
	}

	if b.count >= quota {
		return 0, b.reset.Sub(now), false
	}

	b.count++
	return quota - b.count, 0, true
}

func (l *RateLimiter) Quota(class LimitClass) int {
	return l.quotas[class]
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.reset) {
			delete(l.buckets, key)
		}
	}
}

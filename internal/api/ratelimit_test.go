// internal/api/ratelimit_test.go
package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(window time.Duration, general, auth, transfer int) (*RateLimiter, *time.Time) {
	l := NewRateLimiter(window, general, auth, transfer)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestRateLimiterExhaustsQuota(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 3, 5, 2)

	for i := 0; i < 3; i++ {
		remaining, _, ok := l.Allow("ip:10.0.0.1", ClassGeneral)
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	remaining, retryAfter, ok := l.Allow("ip:10.0.0.1", ClassGeneral)
	assert.False(t, ok)
	assert.Zero(t, remaining)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestRateLimiterWindowReset(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 1, 5, 2)

	_, _, ok := l.Allow("ip:10.0.0.1", ClassGeneral)
	require.True(t, ok)
	_, retryAfter, ok := l.Allow("ip:10.0.0.1", ClassGeneral)
	require.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter)

	*clock = clock.Add(30 * time.Second)
	_, retryAfter, ok = l.Allow("ip:10.0.0.1", ClassGeneral)
	require.False(t, ok)
	assert.Equal(t, 30*time.Second, retryAfter)

	*clock = clock.Add(31 * time.Second)
	remaining, _, ok := l.Allow("ip:10.0.0.1", ClassGeneral)
	assert.True(t, ok)
	assert.Zero(t, remaining)
}

func TestRateLimiterIsolatesIdentitiesAndClasses(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 1, 1, 1)

	_, _, ok := l.Allow("user:1", ClassTransfer)
	require.True(t, ok)
	_, _, ok = l.Allow("user:1", ClassTransfer)
	require.False(t, ok)

	// A different user keeps a full quota.
	_, _, ok = l.Allow("user:2", ClassTransfer)
	assert.True(t, ok)

	// The same user is untouched on another class.
	_, _, ok = l.Allow("user:1", ClassGeneral)
	assert.True(t, ok)
}

func TestRateLimiterQuota(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, 100, 10, 5)

	assert.Equal(t, 100, l.Quota(ClassGeneral))
	assert.Equal(t, 10, l.Quota(ClassAuth))
	assert.Equal(t, 5, l.Quota(ClassTransfer))
}

func TestRateLimiterSweepDropsExpiredBuckets(t *testing.T) {
	l, clock := newTestLimiter(time.Minute, 5, 5, 5)

	for i := 0; i < sweepThreshold+1; i++ {
		_, _, ok := l.Allow(fmt.Sprintf("ip:10.0.%d.%d", i/256, i%256), ClassGeneral)
		require.True(t, ok)
	}
	require.Greater(t, len(l.buckets), sweepThreshold)

	*clock = clock.Add(2 * time.Minute)
	_, _, ok := l.Allow("ip:fresh", ClassGeneral)
	require.True(t, ok)

	assert.Equal(t, 1, len(l.buckets))
}

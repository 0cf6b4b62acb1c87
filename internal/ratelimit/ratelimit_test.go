package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket_Allow(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now)

	for i := 0; i < 10; i++ {
		assert.True(t, bucket.allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, bucket.allow(), "11th request should be denied")
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now)
	for i := 0; i < 10; i++ {
		bucket.allow()
	}

	clock.Advance(time.Second)
	assert.True(t, bucket.allow())
	assert.False(t, bucket.allow())
}

func TestTokenBucket_TakeReportsWait(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(1, 2.0, clock.Now)

	ok, _ := bucket.take()
	require.True(t, ok)

	ok, wait := bucket.take()
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)
}

func TestTokenBucket_Status(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now)
	for i := 0; i < 5; i++ {
		bucket.allow()
	}

	remaining, resetTime := bucket.status()
	assert.Equal(t, 5, remaining)
	assert.Equal(t, clock.Now().Add(5*time.Second), resetTime)
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 3, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/runs", "GET")
		assert.True(t, allowed)
		assert.Equal(t, 3, info.Limit)
	}

	allowed, info := limiter.Allow("10.0.0.1", "/runs", "GET")
	assert.False(t, allowed)
	assert.Greater(t, info.RetryAfter, time.Duration(0))

	// Other clients have their own bucket
	allowed, _ = limiter.Allow("10.0.0.2", "/runs", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"good": true},
		Blacklist:     map[string]bool{"bad": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("good", "/runs", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("bad", "/runs", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	for i := 0; i < 100; i++ {
		allowed, _ := limiter.Allow("c", "/runs", "GET")
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Wait(context.Background(), "reddit"))
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/reports/", Method: "GET", Limit: 2, Window: time.Minute, Burst: 2},
		},
	})
	defer limiter.Stop()

	limiter.Allow("c", "/reports/category", "GET")
	limiter.Allow("c", "/reports/category", "GET")
	allowed, info := limiter.Allow("c", "/reports/category", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 2, info.Limit)

	allowed, _ = limiter.Allow("c", "/runs", "GET")
	assert.True(t, allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("c", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("shared", "/runs", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowedCount)
}

func TestLimiter_CleanupRemovesIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	limiter.now = clock.Now

	for i := 0; i < 3; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i), "/runs", "GET")
	}
	clock.Advance(2 * time.Hour)
	limiter.Allow("fresh", "/runs", "GET")

	limiter.cleanupBuckets(time.Hour)

	limiter.mu.RLock()
	defer limiter.mu.RUnlock()
	assert.Len(t, limiter.buckets, 1)
}

func TestLimiter_WaitBlocksUntilRefill(t *testing.T) {
	// 600 per minute refills one token every 100ms
	limiter := NewLimiter(OutboundConfig(600))
	defer limiter.Stop()

	limiter.mu.Lock()
	limiter.buckets["reddit"] = newTokenBucket(1, 10, time.Now)
	limiter.mu.Unlock()

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx, "reddit"))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "reddit"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(OutboundConfig(1))
	defer limiter.Stop()

	require.NoError(t, limiter.Wait(context.Background(), "reddit"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "reddit")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutboundConfig_Disabled(t *testing.T) {
	assert.False(t, OutboundConfig(0).Enabled)
}

func TestStop_Idempotent(t *testing.T) {
	limiter := NewLimiter(nil)
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	assert.NotNil(t, MatchEndpoint("/reports/category", "GET", configs))
	assert.NotNil(t, MatchEndpoint("/opportunities/by-url", "GET", configs))
	assert.Nil(t, MatchEndpoint("/runs", "GET", configs))
	assert.Equal(t, 0, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestMatchEndpoint_LongestPrefixWins(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/runs/", Method: "GET", Limit: 100},
		{Path: "/runs/batches/", Method: "GET", Limit: 5},
		{Path: "/runs/", Method: "POST", Limit: 1},
	}

	assert.Equal(t, 5, MatchEndpoint("/runs/batches/7", "GET", configs).Limit)
	assert.Equal(t, 100, MatchEndpoint("/runs/7", "GET", configs).Limit)
	assert.Equal(t, 1, MatchEndpoint("/runs/7", "POST", configs).Limit)
	assert.Nil(t, MatchEndpoint("/runs/7", "DELETE", configs))
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":    "42",
		"RATE_LIMIT_DEFAULT_WINDOW":   "30s",
		"RATE_LIMIT_WHITELIST":        "10.0.0.1, 10.0.0.2,",
		"RATE_LIMIT_CLEANUP_INTERVAL": "not-a-duration",
	}
	cfg := LoadConfig(func(k string) string { return env[k] })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)
	assert.Equal(t, DefaultEndpointConfigs(), cfg.EndpointConfigs)
}

func TestLoadConfig_Disabled(t *testing.T) {
	cfg := LoadConfig(func(k string) string {
		if k == "RATE_LIMIT_ENABLED" {
			return "false"
		}
		return ""
	})
	assert.False(t, cfg.Enabled)
}

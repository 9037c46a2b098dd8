package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(DefaultTiers(), NewMemoryStore(clock.Now), "rl"), clock
}

func TestAdmit_AuthTierPerMinute(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Admit(ctx, "ip:10.0.0.1", TierAuth)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 5-i, d.Remaining)
	}

	clock.Advance(10 * time.Second)
	d, err := l.Admit(ctx, "ip:10.0.0.1", TierAuth)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 50*time.Second, d.RetryAfter)

	// another address has its own budget
	d, err = l.Admit(ctx, "ip:10.0.0.2", TierAuth)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	clock.Advance(50 * time.Second)
	d, err = l.Admit(ctx, "ip:10.0.0.1", TierAuth)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window elapsed")
}

func TestAdmit_AuthTierPerHour(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for minute := 0; minute < 4; minute++ {
		for i := 0; i < 5; i++ {
			d, err := l.Admit(ctx, "ip:10.0.0.1", TierAuth)
			require.NoError(t, err)
			require.True(t, d.Allowed)
		}
		clock.Advance(time.Minute)
	}

	d, err := l.Admit(ctx, "ip:10.0.0.1", TierAuth)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "hourly budget of 20 is spent")
	assert.Equal(t, 20, d.Limit)
	assert.Equal(t, 56*time.Minute, d.RetryAfter)
}

func TestAdmit_RejectedAttemptsCount(t *testing.T) {
	l, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := l.Admit(ctx, "user:1", TierWrites)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		d, err := l.Admit(ctx, "user:1", TierWrites)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	}

	// retries inside the window do not extend it
	clock.Advance(time.Minute)
	d, err := l.Admit(ctx, "user:1", TierWrites)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAdmit_UnknownTier(t *testing.T) {
	l, _ := newTestLimiter()

	_, err := l.Admit(context.Background(), "ip:1", "bulk")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestAdmit_Concurrent(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(ctx, "user:7", TierAPI)
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 60, allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := NewMemoryStore(clock.Now)
	ctx := context.Background()

	_, _, err := s.Incr(ctx, "a", time.Second)
	require.NoError(t, err)
	_, _, err = s.Incr(ctx, "b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	clock.Advance(2 * time.Minute)
	_, _, err = s.Incr(ctx, "c", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len(), "expired window a is dropped")
}

func TestRedisStore_FallsBackWhenUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	logger, hook := test.NewNullLogger()
	clock := &fakeClock{now: time.Now()}
	l := New(DefaultTiers(), NewRedisStore(rdb, NewMemoryStore(clock.Now), logger), "rl")

	for i := 0; i < 5; i++ {
		d, err := l.Admit(context.Background(), "ip:1", TierAuth)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Admit(context.Background(), "ip:1", TierAuth)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "fallback keeps enforcing limits")
	assert.NotEmpty(t, hook.AllEntries())
}

func TestParseScriptResult(t *testing.T) {
	count, ttl, err := parseScriptResult([]interface{}{int64(3), int64(1500)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1500*time.Millisecond, ttl)

	_, _, err = parseScriptResult("nope")
	assert.Error(t, err)
}

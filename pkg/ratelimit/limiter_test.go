package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/observability"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	store, err := cache.NewStore(cache.StoreConfig{DisableRedis: true},
		observability.NewNoopLogger(), observability.NewNoopMetricsClient())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewLimiter(store, Config{}, observability.NewNoopLogger(), observability.NewNoopMetricsClient())
}

func TestCheckMonotonicity(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	// Pin time so all calls land in one window.
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	type decision struct {
		allowed   bool
		remaining int
	}
	var got []decision
	for i := 0; i < 4; i++ {
		r := l.Check(ctx, "user1", "/search", 3)
		got = append(got, decision{r.Allowed, r.Remaining})
	}

	want := []decision{{true, 2}, {true, 1}, {true, 0}, {false, 0}}
	assert.Equal(t, want, got)
}

func TestCheckWindowRollover(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		l.Check(ctx, "user1", "/search", 2)
	}
	assert.False(t, l.Check(ctx, "user1", "/search", 2).Allowed)

	// A new window means a fresh counter key, so quota is restored.
	current = current.Add(cache.TTLRateLimitWindow + time.Second)
	r := l.Check(ctx, "user1", "/search", 2)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
}

func TestCheckIsolation(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	for i := 0; i < 5; i++ {
		l.Check(ctx, "user1", "/search", 3)
	}

	t.Run("Per User", func(t *testing.T) {
		assert.True(t, l.Check(ctx, "user2", "/search", 3).Allowed)
	})

	t.Run("Per Endpoint", func(t *testing.T) {
		assert.True(t, l.Check(ctx, "user1", "/generate", 3).Allowed)
	})
}

func TestCheckResetTime(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	r := l.Check(ctx, "user1", "/search", 3)
	assert.True(t, r.ResetTime.After(fixed))
	assert.LessOrEqual(t, r.ResetTime.Sub(fixed), cache.TTLRateLimitWindow)
}

func TestReset(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	for i := 0; i < 4; i++ {
		l.Check(ctx, "user1", "/search", 3)
	}
	assert.False(t, l.Check(ctx, "user1", "/search", 3).Allowed)

	l.Reset(ctx, "user1", "/search")

	r := l.Check(ctx, "user1", "/search", 3)
	assert.True(t, r.Allowed)
	assert.Equal(t, 2, r.Remaining)
}

// failingCounter simulates a counter backend that cannot serve increments.
type failingCounter struct{}

func (failingCounter) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	return 0
}

func (failingCounter) Delete(ctx context.Context, key string) bool { return false }

func TestCheckFailsOpen(t *testing.T) {
	l := NewLimiter(failingCounter{}, Config{},
		observability.NewNoopLogger(), observability.NewNoopMetricsClient())

	r := l.Check(context.Background(), "user1", "/search", 3)
	assert.True(t, r.Allowed)
	assert.Equal(t, 3, r.Remaining)
}

// Package ratelimit implements fixed-window request admission on top of the
// cache store's atomic counters. Windows are implicit in key construction:
// each (user, endpoint, window) triple maps to one counter whose TTL expiry
// is the window reset.
package ratelimit

import (
	"context"
	"time"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/observability"
)

// CounterStore is the slice of the cache store the limiter needs
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) int64
	Delete(ctx context.Context, key string) bool
}

// Result is the admission decision returned to callers, who translate
// Allowed=false into a rejection (HTTP 429) with ResetTime for the client.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// Config configures the limiter
type Config struct {
	WindowSize time.Duration `mapstructure:"window_size"`

	// DefaultLimit applies when a caller passes a non-positive limit.
	DefaultLimit int `mapstructure:"default_limit"`
}

// Limiter admits or rejects requests per user and endpoint using
// fixed-window counting.
type Limiter struct {
	store   CounterStore
	window  time.Duration
	dflt    int
	logger  observability.Logger
	metrics observability.MetricsClient

	now func() time.Time
}

// NewLimiter creates a limiter over the given counter store
func NewLimiter(store CounterStore, cfg Config, logger observability.Logger, metrics observability.MetricsClient) *Limiter {
	window := cfg.WindowSize
	if window <= 0 {
		window = cache.TTLRateLimitWindow
	}
	dflt := cfg.DefaultLimit
	if dflt <= 0 {
		dflt = 60
	}
	return &Limiter{
		store:   store,
		window:  window,
		dflt:    dflt,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Check admits or rejects one request for userID on endpoint under limit.
// Counter backend failures fail open: availability is deliberately
// prioritized over strict enforcement, and the failure is logged.
func (l *Limiter) Check(ctx context.Context, userID, endpoint string, limit int) Result {
	if limit <= 0 {
		limit = l.dflt
	}

	now := l.now()
	windowMs := l.window.Milliseconds()
	windowID := now.UnixMilli() / windowMs
	resetTime := time.UnixMilli((windowID + 1) * windowMs)

	key := cache.RateLimitKey(userID, endpoint, windowID)
	count := l.store.Increment(ctx, key, l.window)
	if count == 0 {
		l.logger.Warn("rate limit counter unavailable, failing open", map[string]interface{}{
			"user_id":  userID,
			"endpoint": endpoint,
		})
		l.metrics.IncrementCounterWithLabels("rate_limit_decisions_total", 1, map[string]string{
			"endpoint": endpoint,
			"decision": "fail_open",
		})
		return Result{Allowed: true, Remaining: limit, ResetTime: resetTime}
	}

	allowed := count <= int64(limit)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	l.metrics.IncrementCounterWithLabels("rate_limit_decisions_total", 1, map[string]string{
		"endpoint": endpoint,
		"decision": decision,
	})

	return Result{Allowed: allowed, Remaining: remaining, ResetTime: resetTime}
}

// Reset deletes the current window's counter for userID on endpoint,
// immediately restoring full quota. Administrative override only.
func (l *Limiter) Reset(ctx context.Context, userID, endpoint string) {
	windowID := l.now().UnixMilli() / l.window.Milliseconds()
	l.store.Delete(ctx, cache.RateLimitKey(userID, endpoint, windowID))
	l.logger.Info("rate limit reset", map[string]interface{}{
		"user_id":  userID,
		"endpoint": endpoint,
	})
}

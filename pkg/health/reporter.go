// Package health aggregates the subsystem's runtime signals into one
// side-effect-free report for operators and load balancers.
package health

import (
	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/serp"
)

// Status is the overall verdict in a health report
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Thresholds for the unhealthy verdict. The hit-rate check only applies once
// enough requests have been observed to make the rate meaningful.
const (
	errorThreshold     = 10
	hitRateThreshold   = 50.0
	minRequestsForRate = 20
)

// Report is the full health payload
type Report struct {
	Status         Status              `json:"status"`
	RedisConnected bool                `json:"redisConnected"`
	UsingFallback  bool                `json:"usingFallback"`
	Cache          cache.CacheStats    `json:"cache"`
	Providers      serp.HealthSnapshot `json:"serp"`
	BreakerState   string              `json:"contentBreaker,omitempty"`
}

// BreakerStater is the optional content-generation signal
type BreakerStater interface {
	BreakerState() string
}

// Reporter computes health reports from live component state. It holds
// references only; building a report mutates nothing and issues no network
// calls.
type Reporter struct {
	store   *cache.Store
	tracker *serp.HealthTracker
	breaker BreakerStater
}

// NewReporter creates a reporter. breaker may be nil when content generation
// is disabled.
func NewReporter(store *cache.Store, tracker *serp.HealthTracker, breaker BreakerStater) *Reporter {
	return &Reporter{store: store, tracker: tracker, breaker: breaker}
}

// GetHealth assembles the current report. Degraded means the subsystem is
// serving but on reduced infrastructure (in-memory fallback); unhealthy means
// error volume or hit rate indicates callers are being hurt.
func (r *Reporter) GetHealth() Report {
	stats := r.store.Stats().Snapshot()
	connected := r.store.IsConnected()

	report := Report{
		Status:         StatusHealthy,
		RedisConnected: connected,
		UsingFallback:  r.store.UsingFallback(),
		Cache:          stats,
		Providers:      r.tracker.Snapshot(),
	}
	if r.breaker != nil {
		report.BreakerState = r.breaker.BreakerState()
	}

	if report.UsingFallback {
		report.Status = StatusDegraded
	}
	if stats.Errors > errorThreshold ||
		(stats.TotalRequests >= minRequestsForRate && stats.HitRate < hitRateThreshold) {
		report.Status = StatusUnhealthy
	}
	return report
}

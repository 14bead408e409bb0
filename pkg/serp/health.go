package serp

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/seoforge/seoforge/pkg/observability"
)

// ErrNoHealthyProviders is the terminal failover state: every provider is
// marked unhealthy and none has cooled down enough to re-probe. Callers
// receive this error explicitly, never an empty result.
var ErrNoHealthyProviders = errors.New("no healthy search providers available")

// DefaultProbeCooldown is how long a provider stays excluded after being
// marked unhealthy before it becomes eligible for a re-probe. Without a
// cooldown a single transient blip would black-hole a provider for the
// process lifetime.
const DefaultProbeCooldown = 5 * time.Minute

// HealthSnapshot is a read-only copy of tracker state for health reporting
type HealthSnapshot struct {
	Healthy map[string]bool `json:"providers"`
	Active  string          `json:"activeProvider"`
}

// HealthTracker records per-provider health and the active provider for one
// process. The active pointer always references an eligible provider except
// in the terminal exhausted state. All transitions happen under one lock so
// concurrent mark-and-switch operations cannot race into an inconsistent
// state.
type HealthTracker struct {
	mu             sync.Mutex
	priority       []ID
	healthy        map[ID]bool
	unhealthySince map[ID]time.Time
	active         ID
	cooldown       time.Duration
	logger         observability.Logger

	now func() time.Time
}

// NewHealthTracker creates a tracker with every provider healthy and the
// highest-priority provider active.
func NewHealthTracker(priority []ID, cooldown time.Duration, logger observability.Logger) *HealthTracker {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	if cooldown <= 0 {
		cooldown = DefaultProbeCooldown
	}

	healthy := make(map[ID]bool, len(priority))
	for _, id := range priority {
		healthy[id] = true
	}

	return &HealthTracker{
		priority:       priority,
		healthy:        healthy,
		unhealthySince: make(map[ID]time.Time),
		active:         priority[0],
		cooldown:       cooldown,
		logger:         logger,
		now:            time.Now,
	}
}

// Active returns the provider the next attempt should use
func (t *HealthTracker) Active() ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// eligible reports whether a provider may be attempted: either currently
// healthy, or unhealthy long enough that a re-probe is due. Caller holds the
// lock.
func (t *HealthTracker) eligible(id ID, now time.Time) bool {
	if t.healthy[id] {
		return true
	}
	since, ok := t.unhealthySince[id]
	return ok && now.Sub(since) >= t.cooldown
}

// Fail marks id unhealthy and atomically switches the active pointer to the
// next eligible provider in priority order. Returns ErrNoHealthyProviders
// when no provider remains eligible.
func (t *HealthTracker) Fail(id ID) (ID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.healthy[id] {
		t.logger.Warn("marking search provider unhealthy", map[string]interface{}{
			"provider": string(id),
		})
	}
	t.healthy[id] = false
	t.unhealthySince[id] = t.now()

	return t.switchLocked(id)
}

// switchLocked moves the active pointer to the first eligible provider in
// priority order, skipping the one that just failed. Caller holds the lock.
func (t *HealthTracker) switchLocked(failed ID) (ID, error) {
	now := t.now()
	for _, candidate := range t.priority {
		if candidate == failed {
			continue
		}
		if t.eligible(candidate, now) {
			if candidate != t.active {
				t.logger.Info("switching active search provider", map[string]interface{}{
					"from": string(t.active),
					"to":   string(candidate),
				})
			}
			t.active = candidate
			return candidate, nil
		}
	}
	return "", ErrNoHealthyProviders
}

// Promote records a successful call: id is marked healthy and becomes the
// active provider.
func (t *HealthTracker) Promote(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.healthy[id] {
		t.logger.Info("search provider recovered", map[string]interface{}{
			"provider": string(id),
		})
	}
	t.healthy[id] = true
	delete(t.unhealthySince, id)
	t.active = id
}

// Snapshot returns a copy of the current health state for reporting. The
// healthy flags reflect re-probe eligibility, so a cooled-down provider
// shows as available again.
func (t *HealthTracker) Snapshot() HealthSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	healthy := make(map[string]bool, len(t.priority))
	for _, id := range t.priority {
		healthy[string(id)] = t.eligible(id, now)
	}
	return HealthSnapshot{Healthy: healthy, Active: string(t.active)}
}

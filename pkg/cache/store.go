package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/seoforge/seoforge/pkg/observability"
)

// SchemaVersion is stamped into every entry envelope; bumping it invalidates
// all previously cached payloads on read.
const SchemaVersion = "1"

// DefaultNamespace prefixes every key this process writes, so Clear can wipe
// the process's keyspace without touching co-tenants of the same Redis.
const DefaultNamespace = "seoforge"

// Entry is the envelope persisted for every cached value. Expiry is enforced
// defensively on read against StoredAt/TTLSeconds even when the physical
// backend has not evicted the key yet.
type Entry struct {
	Data          json.RawMessage `json:"data"`
	StoredAt      time.Time       `json:"storedAt"`
	TTLSeconds    int             `json:"ttlSeconds"`
	SchemaVersion string          `json:"schemaVersion"`
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTLSeconds > 0 && now.Sub(e.StoredAt) > time.Duration(e.TTLSeconds)*time.Second
}

// StoreConfig configures the hybrid store
type StoreConfig struct {
	Redis          RedisConfig `mapstructure:"redis"`
	Namespace      string      `mapstructure:"namespace"`
	MaxMemoryItems int         `mapstructure:"max_memory_items"`

	// DisableRedis forces fallback-only mode; used in tests and local runs.
	DisableRedis bool `mapstructure:"disable_redis"`
}

// Store is the hybrid cache: a Redis primary with an in-process fallback.
// Any primary failure flips the store to the fallback for all subsequent
// calls; callers never see infrastructure errors, only hit/miss results.
// Both backends honor identical TTL and namespace semantics.
type Store struct {
	primary  *RedisCache
	fallback *MemoryCache

	namespace string
	stats     *Stats
	logger    observability.Logger
	metrics   observability.MetricsClient

	mu            sync.RWMutex
	connected     bool
	redisCfg      RedisConfig
	redisDisabled bool
}

// NewStore creates a hybrid store. Redis being unreachable at startup is not
// fatal: the store starts in fallback mode and logs the degradation.
func NewStore(cfg StoreConfig, logger observability.Logger, metrics observability.MetricsClient) (*Store, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	fallback, err := NewMemoryCache(cfg.MaxMemoryItems)
	if err != nil {
		return nil, err
	}

	s := &Store{
		fallback:      fallback,
		namespace:     cfg.Namespace,
		stats:         NewStats(),
		logger:        logger,
		metrics:       metrics,
		redisCfg:      cfg.Redis,
		redisDisabled: cfg.DisableRedis,
	}

	if !cfg.DisableRedis {
		primary, err := NewRedisCache(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable at startup, using in-memory fallback", map[string]interface{}{
				"address": cfg.Redis.Address,
				"error":   err.Error(),
			})
		} else {
			s.primary = primary
			s.connected = true
			logger.Info("connected to redis", map[string]interface{}{
				"address": cfg.Redis.Address,
			})
		}
	}

	return s, nil
}

// IsConnected reports whether the Redis primary is serving requests
func (s *Store) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// UsingFallback reports whether reads and writes are hitting the in-process cache
func (s *Store) UsingFallback() bool {
	return !s.IsConnected()
}

// Reconnect attempts to re-establish the Redis primary. Returns true when the
// store is connected afterwards. Readiness probes call this on a degraded
// store, so recovery rides the probe schedule instead of the request path.
func (s *Store) Reconnect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return true
	}
	if s.redisDisabled {
		return false
	}

	primary, err := NewRedisCache(s.redisCfg)
	if err != nil {
		s.logger.Debug("redis reconnect attempt failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	if s.primary != nil {
		_ = s.primary.Close()
	}
	s.primary = primary
	s.connected = true
	s.logger.Info("reconnected to redis", map[string]interface{}{
		"address": s.redisCfg.Address,
	})
	return true
}

// Stats returns the store's counters
func (s *Store) Stats() *Stats {
	return s.stats
}

// Namespace returns the key prefix this store writes under
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) namespaced(key string) string {
	return s.namespace + ":" + key
}

// markDisconnected records a primary failure so subsequent calls go straight
// to the fallback instead of timing out against a dead Redis.
func (s *Store) markDisconnected(op string, err error) {
	s.stats.RecordError()

	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.mu.Unlock()

	if wasConnected {
		s.logger.Error("redis operation failed, degrading to in-memory fallback", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
}

// activeBackend captures the backend to use under the lock, so a concurrent
// Reconnect or Close cannot swap the primary out from under a caller. The
// second return reports whether the captured backend is the Redis primary.
func (s *Store) activeBackend() (Backend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.connected {
		return s.primary, true
	}
	return s.fallback, false
}

// Set serializes value into an envelope and stores it under key with the
// given TTL. Returns false only when the value cannot be serialized.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	start := time.Now()

	data, err := json.Marshal(value)
	if err != nil {
		s.stats.RecordError()
		s.logger.Error("failed to marshal cache value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	entry, err := json.Marshal(Entry{
		Data:          data,
		StoredAt:      time.Now(),
		TTLSeconds:    int(ttl / time.Second),
		SchemaVersion: SchemaVersion,
	})
	if err != nil {
		s.stats.RecordError()
		return false
	}

	nk := s.namespaced(key)
	if backend, isPrimary := s.activeBackend(); isPrimary {
		if err := backend.Set(ctx, nk, entry, ttl); err != nil {
			s.markDisconnected("set", err)
			_ = s.fallback.Set(ctx, nk, entry, ttl)
		}
	} else {
		_ = s.fallback.Set(ctx, nk, entry, ttl)
	}

	s.metrics.RecordCacheOperation("set", true, time.Since(start).Seconds())
	return true
}

// Get reads the entry stored under key into dest. Every call counts toward
// the hit/miss stats. Entries whose logical age exceeds their stored TTL are
// treated as absent and deleted best-effort, even if the physical backend
// has not expired them yet.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()
	s.stats.RecordRequest()

	nk := s.namespaced(key)

	backend, _ := s.activeBackend()
	raw, err := backend.Get(ctx, nk)
	if err == ErrNotFound {
		s.stats.RecordMiss()
		s.metrics.RecordCacheOperation("get", false, time.Since(start).Seconds())
		return false
	}
	if err != nil {
		s.markDisconnected("get", err)
		raw, err = s.fallback.Get(ctx, nk)
		if err != nil {
			s.stats.RecordMiss()
			s.metrics.RecordCacheOperation("get", false, time.Since(start).Seconds())
			return false
		}
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.SchemaVersion != SchemaVersion {
		// Corrupt or old-schema payload: treat as a miss and reclaim the key.
		s.deleteBothBackends(ctx, nk)
		s.stats.RecordMiss()
		s.metrics.RecordCacheOperation("get", false, time.Since(start).Seconds())
		return false
	}

	if entry.expired(time.Now()) {
		s.deleteBothBackends(ctx, nk)
		s.stats.RecordMiss()
		s.metrics.RecordCacheOperation("get", false, time.Since(start).Seconds())
		return false
	}

	if err := json.Unmarshal(entry.Data, dest); err != nil {
		s.stats.RecordError()
		s.stats.RecordMiss()
		s.logger.Error("failed to unmarshal cached value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	s.stats.RecordHit()
	s.metrics.RecordCacheOperation("get", true, time.Since(start).Seconds())
	return true
}

// Delete removes key from both backends so a later reconnect cannot revive
// a stale value.
func (s *Store) Delete(ctx context.Context, key string) bool {
	s.deleteBothBackends(ctx, s.namespaced(key))
	return true
}

func (s *Store) deleteBothBackends(ctx context.Context, namespacedKey string) {
	if backend, isPrimary := s.activeBackend(); isPrimary {
		if err := backend.Delete(ctx, namespacedKey); err != nil {
			s.markDisconnected("delete", err)
		}
	}
	_ = s.fallback.Delete(ctx, namespacedKey)
}

// Exists reports whether a live entry is stored under key
func (s *Store) Exists(ctx context.Context, key string) bool {
	backend, _ := s.activeBackend()
	ok, err := backend.Exists(ctx, s.namespaced(key))
	if err != nil {
		s.markDisconnected("exists", err)
		ok, _ = s.fallback.Exists(ctx, s.namespaced(key))
	}
	return ok
}

// Increment atomically increments the counter at key, applying ttl only when
// the counter is created. Returns 0 when no backend could serve the call.
func (s *Store) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	start := time.Now()

	nk := s.namespaced(key)
	backend, _ := s.activeBackend()
	count, err := backend.Increment(ctx, nk, ttl)
	if err != nil {
		s.markDisconnected("increment", err)
		count, err = s.fallback.Increment(ctx, nk, ttl)
		if err != nil {
			s.stats.RecordError()
			s.metrics.RecordCacheOperation("increment", false, time.Since(start).Seconds())
			return 0
		}
	}

	s.metrics.RecordCacheOperation("increment", true, time.Since(start).Seconds())
	return count
}

// Clear removes keys matching pattern (relative to the namespace) from both
// backends. An empty pattern clears everything under the namespace.
func (s *Store) Clear(ctx context.Context, pattern string) bool {
	if pattern == "" {
		pattern = "*"
	}
	nk := s.namespaced(pattern)

	ok := true
	if backend, isPrimary := s.activeBackend(); isPrimary {
		if err := backend.DeleteByPattern(ctx, nk); err != nil {
			s.markDisconnected("clear", err)
			ok = false
		}
	}
	if err := s.fallback.DeleteByPattern(ctx, nk); err != nil {
		s.stats.RecordError()
		ok = false
	}
	return ok
}

// Close releases both backends
func (s *Store) Close() error {
	var err error
	s.mu.Lock()
	if s.primary != nil {
		err = s.primary.Close()
		s.primary = nil
		s.connected = false
	}
	s.mu.Unlock()
	_ = s.fallback.Close()
	return err
}

// GetOrSet returns the cached value for key, or invokes fetch exactly once,
// caches its result under ttl and returns it. When fetch fails the error
// propagates and nothing is cached; failures are never negatively cached.
func GetOrSet[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	s.Set(ctx, key, value, ttl)
	return value, nil
}

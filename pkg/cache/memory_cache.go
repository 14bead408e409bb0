package cache

import (
	"context"
	"path"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCacheSize bounds the fallback cache so a Redis outage cannot
// grow the process heap without limit.
const DefaultMemoryCacheSize = 10000

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryCache implements Backend with a bounded in-process LRU. Expiry is
// checked lazily on every read rather than with per-key timers, so heavy
// key churn never leaks timers or goroutines.
type MemoryCache struct {
	items *lru.Cache[string, memoryItem]

	// Guards read-modify-write sequences (Increment) that span more than
	// one LRU operation; the LRU itself is already safe for concurrent use.
	mu sync.Mutex
}

// NewMemoryCache creates a new in-process backend holding at most maxItems entries
func NewMemoryCache(maxItems int) (*MemoryCache, error) {
	if maxItems <= 0 {
		maxItems = DefaultMemoryCacheSize
	}
	items, err := lru.New[string, memoryItem](maxItems)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{items: items}, nil
}

// Get retrieves the bytes stored under key, treating expired entries as absent
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	item, ok := c.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if item.expired(time.Now()) {
		c.items.Remove(key)
		return nil, ErrNotFound
	}
	return item.value, nil
}

// Set stores bytes under key with a TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.items.Add(key, memoryItem{value: value, expiresAt: expiresAt})
	return nil
}

// Delete removes a key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.items.Remove(key)
	return nil
}

// DeleteByPattern removes all keys matching a glob pattern. The pattern
// grammar matches the subset of Redis glob syntax used by the key builders
// (* and ? wildcards).
func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for _, key := range c.items.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			c.items.Remove(key)
		}
	}
	return nil
}

// Exists checks whether a non-expired entry is present
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	item, ok := c.items.Peek(key)
	if !ok {
		return false, nil
	}
	if item.expired(time.Now()) {
		c.items.Remove(key)
		return false, nil
	}
	return true, nil
}

// Increment atomically increments the counter at key, applying ttl only on creation
func (c *MemoryCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := int64(0)
	expiresAt := time.Time{}

	if item, ok := c.items.Get(key); ok && !item.expired(now) {
		count = decodeCount(item.value)
		expiresAt = item.expiresAt
	}

	count++
	if count == 1 && ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	c.items.Add(key, memoryItem{value: encodeCount(count), expiresAt: expiresAt})
	return count, nil
}

// Len returns the number of entries currently held, expired ones included
func (c *MemoryCache) Len() int {
	return c.items.Len()
}

// Purge removes every entry
func (c *MemoryCache) Purge() {
	c.items.Purge()
}

// Close implements Backend.Close
func (c *MemoryCache) Close() error {
	c.items.Purge()
	return nil
}

// Counters are stored in the same decimal form Redis uses so that the two
// backends stay byte-compatible for INCR keys.
func encodeCount(count int64) []byte {
	buf := [20]byte{}
	i := len(buf)
	n := count
	if n == 0 {
		return []byte{'0'}
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return append([]byte(nil), buf[i:]...)
}

func decodeCount(data []byte) int64 {
	var count int64
	for _, b := range data {
		if b < '0' || b > '9' {
			return 0
		}
		count = count*10 + int64(b-'0')
	}
	return count
}

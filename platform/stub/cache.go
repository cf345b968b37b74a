package stub

import (
	"context"
	"sync"
	"time"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Cache implements the Cache contract with an in-memory store and TTL
// support. Expiry is lazy: entries are evicted when a read or existence
// check finds them past their deadline, never by a background sweeper.
type Cache struct {
	mu     sync.Mutex
	logger types.Logger
	store  map[string]cacheEntry

	// now is swapped in tests to simulate the passage of time
	now func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
	hasExpiry bool
}

// NewCache creates the stub cache. A nil logger falls back to a console
// logger.
func NewCache(log types.Logger) *Cache {
	if log == nil {
		log = fallbackLogger()
	}
	return &Cache{
		logger: log,
		store:  make(map[string]cacheEntry),
		now:    time.Now,
	}
}

// Get returns the live value under key. An expired entry is evicted and
// reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (any, bool, error) {
	c.logger.Debug("Getting value from stub cache", types.Fields{"key": key})

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[key]
	if !ok {
		c.logger.Debug("Cache miss", types.Fields{"key": key})
		return nil, false, nil
	}

	if entry.hasExpiry && c.now().After(entry.expiresAt) {
		c.logger.Debug("Cache entry expired", types.Fields{
			"key":        key,
			"expired_at": entry.expiresAt.UTC().Format(time.RFC3339Nano),
		})
		delete(c.store, key)
		return nil, false, nil
	}

	c.logger.Debug("Cache hit", types.Fields{"key": key})
	return entry.value, true, nil
}

// Set stores value under key. A non-zero ttl sets an absolute expiry
// computed now; without one the entry lives until deleted.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl ...time.Duration) error {
	meta := types.Fields{"key": key, "has_ttl": len(ttl) > 0}
	if len(ttl) > 0 && ttl[0] != 0 {
		meta["ttl_seconds"] = ttl[0].Seconds()
	}
	c.logger.Debug("Setting value in stub cache", meta)

	entry := cacheEntry{value: value}
	if len(ttl) > 0 && ttl[0] != 0 {
		entry.expiresAt = c.now().Add(ttl[0])
		entry.hasExpiry = true
	}

	c.mu.Lock()
	c.store[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	c.logger.Debug("Deleting value from stub cache", types.Fields{"key": key})

	c.mu.Lock()
	_, existed := c.store[key]
	if existed {
		delete(c.store, key)
	}
	c.mu.Unlock()

	c.logger.Debug("Cache deletion result", types.Fields{"key": key, "existed": existed})
	return existed, nil
}

// Exists reports whether key is present and live, evicting it when expired.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[key]
	if !ok {
		return false, nil
	}

	if entry.hasExpiry && c.now().After(entry.expiresAt) {
		delete(c.store, key)
		return false, nil
	}

	return true, nil
}

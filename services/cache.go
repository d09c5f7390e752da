package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"stock-analyst/observability"
)

// cacheEntry is a stored value with its expiry.
type cacheEntry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTLCache is a thread-safe in-memory cache with per-entry TTL.
//
// Expired entries are treated as misses and removed eagerly on Get; a
// background sweep additionally removes them on a fixed interval to bound
// memory growth between lookups. The sweep never starts at construction
// time: callers start it with StartSweep once the process is serving and
// stop it with StopSweep during shutdown.
//
// Alongside the TTL-governed entry, every Set refreshes a secondary
// "last good" slot for the key that expiry never touches. GetStale reads
// it so callers can serve stale data when a fresh fetch is not possible.
type TTLCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	lastGood map[string]cacheEntry

	hits   uint64
	misses uint64

	sweepInterval time.Duration
	sweepCancel   context.CancelFunc
	sweepDone     chan struct{}

	now func() time.Time
}

// DefaultSweepInterval is how often the background sweep runs.
const DefaultSweepInterval = 60 * time.Second

// NewTTLCache creates a TTLCache. A non-positive sweepInterval falls back
// to DefaultSweepInterval.
func NewTTLCache(sweepInterval time.Duration) *TTLCache {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &TTLCache{
		entries:       make(map[string]cacheEntry),
		lastGood:      make(map[string]cacheEntry),
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// Get returns the cached value for key. An entry past its expiry is
// removed and reported as a miss, regardless of the sweep.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// Age returns how long ago the live entry for key was stored.
func (c *TTLCache) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || entry.expired(c.now()) {
		return 0, false
	}
	return c.now().Sub(entry.createdAt), true
}

// Set stores value under key with the given TTL and refreshes the key's
// last-good slot.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	now := c.now()
	entry := cacheEntry{value: value, createdAt: now, expiresAt: now.Add(ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.lastGood[key] = entry
}

// GetStale returns the last successfully stored value for key, ignoring
// TTL. Used as a fallback when the provider cannot be reached.
func (c *TTLCache) GetStale(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.lastGood[key]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Delete removes key from the cache and its last-good slot.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.lastGood, key)
}

// Clear removes all entries and last-good slots.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.lastGood = make(map[string]cacheEntry)
}

// StartSweep launches the periodic sweep goroutine. Calling it while a
// sweep is already running is a no-op. The sweep stops when ctx is
// cancelled or StopSweep is called.
func (c *TTLCache) StartSweep(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepCancel != nil {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.sweepCancel = cancel
	c.sweepDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if removed := c.removeExpired(); removed > 0 {
					observability.Debug("cache sweep removed expired entries", "count", removed)
				}
			}
		}
	}()
}

// StopSweep cancels the sweep goroutine and waits (bounded) for it to
// finish. Safe to call when the sweep was never started.
func (c *TTLCache) StopSweep() {
	c.mu.Lock()
	cancel := c.sweepCancel
	done := c.sweepDone
	c.sweepCancel = nil
	c.sweepDone = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		observability.Warn("cache sweep did not stop within timeout")
	}
}

func (c *TTLCache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// CacheStats is a read-only diagnostic snapshot for health checks.
type CacheStats struct {
	Entries       int    `json:"entries"`
	LastGoodSlots int    `json:"last_good_slots"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
}

// Stats returns current cache statistics.
func (c *TTLCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Entries:       len(c.entries),
		LastGoodSlots: len(c.lastGood),
		Hits:          c.hits,
		Misses:        c.misses,
	}
}

// CacheKey derives a deterministic, collision-resistant key for an
// operation and its arguments: an FNV-64a hash over the canonical
// "op:arg1:arg2" form.
func CacheKey(op string, args ...string) string {
	h := fnv.New64a()
	h.Write([]byte(op))
	for _, arg := range args {
		h.Write([]byte{':'})
		h.Write([]byte(strings.ToUpper(arg)))
	}
	return fmt.Sprintf("%s:%016x", op, h.Sum64())
}

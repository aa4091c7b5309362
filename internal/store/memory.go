package store

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/marine-conditions/internal/weather"
)

var (
	// ErrNotFound is returned when no live entry exists for a key.
	ErrNotFound = errors.New("no cached forecast for key")
)

// CacheEntry is a stored result and the time it was computed.
type CacheEntry struct {
	Result    *weather.ForecastResult
	CreatedAt time.Time
}

// Tier is an optional shared second level behind the in-memory map. Load
// reports how long the stored result has left to live.
type Tier interface {
	Load(ctx context.Context, key string) (*weather.ForecastResult, time.Duration, bool)
	Save(ctx context.Context, key string, result *weather.ForecastResult, ttl time.Duration)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Computations int64 `json:"computations"`
	Failures     int64 `json:"failures"`
	Entries      int   `json:"entries"`
}

// ForecastCache is a concurrency-safe read-through cache with bounded TTL.
// Concurrent misses for one key share a single computation.
type ForecastCache struct {
	mu sync.RWMutex

	// key: CacheKey.String()
	data map[string]CacheEntry

	ttl        time.Duration
	maxEntries int // 0 = unlimited
	tier       Tier
	now        func() time.Time

	group singleflight.Group
	stats Stats
}

// NewForecastCache creates a cache. ttl <= 0 falls back to 30 minutes.
// If maxEntries is <= 0, it is treated as unlimited.
func NewForecastCache(ttl time.Duration, maxEntries int) *ForecastCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ForecastCache{
		data:       make(map[string]CacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithTier attaches a second-level tier consulted on local misses.
func (c *ForecastCache) WithTier(t Tier) *ForecastCache {
	c.tier = t
	return c
}

// GetOrCompute returns the live entry for key, or runs compute once for all
// concurrent callers. A failed computation is returned to every waiter and
// nothing is stored.
func (c *ForecastCache) GetOrCompute(ctx context.Context, key weather.CacheKey, compute weather.ComputeFunc) (*weather.ForecastResult, error) {
	k := key.String()

	if res, err := c.Get(k); err == nil {
		return res, nil
	}

	ch := c.group.DoChan(k, func() (interface{}, error) {
		// Another caller may have stored the entry between our miss and this flight.
		if res, err := c.Get(k); err == nil {
			return res, nil
		}

		// The flight outlives any single caller's cancellation.
		flightCtx := context.WithoutCancel(ctx)

		if c.tier != nil {
			if res, remaining, ok := c.tier.Load(flightCtx, k); ok && remaining > 0 {
				// Keep the age the entry already has in the tier.
				if remaining > c.ttl {
					remaining = c.ttl
				}
				c.put(k, res, c.now().Add(remaining-c.ttl))
				return res, nil
			}
		}

		c.mu.Lock()
		c.stats.Misses++
		c.stats.Computations++
		c.mu.Unlock()

		log.WithField("key", k).Debug("cache miss; computing forecast")

		res, err := compute(flightCtx)
		if err != nil {
			c.mu.Lock()
			c.stats.Failures++
			c.mu.Unlock()
			return nil, err
		}
		if res == nil {
			return nil, errors.New("forecast computation returned no result")
		}

		c.put(k, res, c.now())
		if c.tier != nil {
			c.tier.Save(flightCtx, k, res, c.ttl)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*weather.ForecastResult), nil
	}
}

// Get returns the live result stored under key.
func (c *ForecastCache) Get(key string) (*weather.ForecastResult, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || c.expired(entry) {
		return nil, ErrNotFound
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()

	log.WithField("key", key).Debug("cache hit")
	return entry.Result, nil
}

func (c *ForecastCache) expired(e CacheEntry) bool {
	return c.now().Sub(e.CreatedAt) >= c.ttl
}

// put stores res as created at createdAt and enforces the entry bound by
// evicting the oldest entries.
func (c *ForecastCache) put(key string, res *weather.ForecastResult, createdAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = CacheEntry{Result: res, CreatedAt: createdAt}

	for c.maxEntries > 0 && len(c.data) > c.maxEntries {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, e := range c.data {
			if oldestKey == "" || e.CreatedAt.Before(oldest) {
				oldestKey, oldest = k, e.CreatedAt
			}
		}
		delete(c.data, oldestKey)
	}
}

// Purge drops expired entries and returns how many were removed.
func (c *ForecastCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.data {
		if c.expired(e) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (c *ForecastCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.Entries = len(c.data)
	return s
}

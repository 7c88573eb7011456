// Package cache provides a bounded, time-expiring in-memory cache with
// per-key suppression of concurrent loads.
//
// One Cache holds a single LRU eviction structure. Store views partition it
// into typed namespaces so unrelated values (whole workbooks, small extraction
// results) keep independent keys while sharing the size bound and TTL.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

// Options configures a Cache
type Options struct {
	// MaxEntries bounds the number of live entries across all namespaces
	MaxEntries int
	// TTL is the unconditional lifetime of an entry, regardless of use
	TTL time.Duration
	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is safe for concurrent use
type Cache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, entry]
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group
	// set while removing entries on purpose, so the eviction callback only counts capacity evictions
	removing bool

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
	loads       atomic.Uint64
}

// Stats is a snapshot of cache counters
type Stats struct {
	Entries     int    `json:"entries"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Loads       uint64 `json:"loads"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// New creates a cache
func New(opts Options) (*Cache, error) {
	if opts.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache: MaxEntries must be positive, got %d", opts.MaxEntries)
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("cache: TTL must be positive, got %s", opts.TTL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache{
		ttl: opts.TTL,
		now: opts.Now,
	}
	lru, err := simplelru.NewLRU[string, entry](opts.MaxEntries, func(string, entry) {
		if !c.removing {
			c.evictions.Add(1)
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

// Get returns a live value. Expired entries are dropped and count as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.remove(key)
		c.expirations.Add(1)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key for one TTL, evicting the least recently used entry when full
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Delete removes key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// Purge removes every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removing = true
	c.lru.Purge()
	c.removing = false
}

// remove drops key; c.mu must be held
func (c *Cache) remove(key string) {
	c.removing = true
	c.lru.Remove(key)
	c.removing = false
}

// Len returns the number of stored entries, including ones that expired but were not yet touched
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:     c.Len(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Loads:       c.loads.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// LoadFunc produces the value for a missing key
type LoadFunc func(ctx context.Context) (interface{}, error)

// GetOrLoad returns the cached value for key or runs load to fill it. At most
// one load per key is in flight; concurrent callers wait for its result.
// Failed loads are not cached.
//
// The load runs on a context detached from ctx's cancellation, so a caller that
// gives up does not abort a load other callers, or later requests, will use.
// The returned bool reports whether the value came from the cache.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (interface{}, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		// another flight may have filled the key between our miss and this call
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		c.loads.Add(1)
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val, false, nil
	}
}

// peek reads a live value without touching recency or counters
func (c *Cache) peek(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Peek(key)
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

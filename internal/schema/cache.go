package schema

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc introspects one source and returns its descriptor.
type FetchFunc func(ctx context.Context) (Descriptor, error)

type cacheEntry struct {
	descriptor Descriptor
	expiresAt  time.Time
}

// Cache memoizes per-source descriptors so repeated requests don't
// re-introspect. Concurrent misses for the same source share a single fetch
// via singleflight.
type Cache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	store map[string]cacheEntry
	sf    singleflight.Group
}

// NewCache builds a cache with the given entry lifetime.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		store: make(map[string]cacheEntry),
	}
}

// Get returns the cached descriptor for source, calling fetch on a miss.
// Fetch failures are not cached.
func (c *Cache) Get(ctx context.Context, source string, fetch FetchFunc) (Descriptor, error) {
	if d, ok := c.lookup(source); ok {
		log.Debug().Str("source", source).Msg("schema cache hit")
		return d, nil
	}

	// Miss: singleflight so concurrent requests for the same source share
	// one introspection call.
	v, err, _ := c.sf.Do(source, func() (interface{}, error) {
		// Double-check in case another goroutine populated the entry while
		// we were waiting to enter.
		if d, ok := c.lookup(source); ok {
			return d, nil
		}

		log.Debug().Str("source", source).Msg("schema cache miss, introspecting")
		fetchStart := time.Now()

		d, err := fetch(ctx)
		if err != nil {
			return Descriptor{}, err
		}
		c.set(source, d)

		log.Info().
			Str("source", source).
			Int("tables", len(d.Tables)).
			Dur("fetch_ms", time.Since(fetchStart)).
			Msg("schema cached")
		return d, nil
	})
	if err != nil {
		return Descriptor{}, err
	}
	return v.(Descriptor), nil
}

// Invalidate drops the cached descriptor for source.
func (c *Cache) Invalidate(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, source)
}

func (c *Cache) lookup(source string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[source]
	if !ok || time.Now().After(e.expiresAt) {
		return Descriptor{}, false
	}
	return e.descriptor, true
}

func (c *Cache) set(source string, d Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[source] = cacheEntry{
		descriptor: d,
		expiresAt:  time.Now().Add(c.ttl),
	}
}

// Package cache keeps server data fetched by the CRUD wrappers so screens do not refetch it on
// every render. Mutations invalidate by key prefix; logout resets everything.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSize = 512
	defaultTTL  = 5 * time.Minute
)

// Loader fetches the value for a key on a cache miss.
type Loader func(ctx context.Context) (any, error)

type Cache struct {
	entries *expirable.LRU[string, any]
	group   singleflight.Group
	log     zerolog.Logger

	// gen changes on every Invalidate and Reset; a load started under an older gen is not stored.
	mu       sync.Mutex
	gen      uint64
	inflight map[string]int
}

type Option func(*options)

type options struct {
	size int
	ttl  time.Duration
	log  zerolog.Logger
}

func WithSize(size int) Option {
	return func(o *options) { o.size = size }
}

func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func New(opts ...Option) *Cache {
	o := options{size: defaultSize, ttl: defaultTTL, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.size <= 0 {
		o.size = defaultSize
	}
	if o.ttl <= 0 {
		o.ttl = defaultTTL
	}
	return &Cache{
		entries:  expirable.NewLRU[string, any](o.size, nil, o.ttl),
		log:      o.log,
		inflight: make(map[string]int),
	}
}

// Fetch returns the cached value for key or runs load once, even when many goroutines miss
// the same key at the same time.
func (c *Cache) Fetch(ctx context.Context, key string, load Loader) (any, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		gen := c.begin(key)
		defer c.end(key)

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v, gen)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug().Str("key", key).Msg("cache load shared")
	}
	return v, nil
}

func (c *Cache) Get(key string) (any, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Set(key string, v any) {
	c.entries.Add(key, v)
}

// Invalidate drops key and every key below it ("wagons" also drops "wagons/42" and typed views
// such as "wagons|T"). Loads of matching keys still in flight are not stored, and later callers
// start a fresh load instead of joining them.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for k := range c.inflight {
		if matchesPrefix(k, prefix) {
			c.group.Forget(k)
		}
	}

	removed := 0
	for _, k := range c.entries.Keys() {
		if matchesPrefix(k, prefix) && c.entries.Remove(k) {
			removed++
		}
	}
	c.log.Debug().Str("prefix", prefix).Int("removed", removed).Msg("cache invalidated")
	return removed
}

// Reset drops all cached server data, including whatever loads still in flight return.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for k := range c.inflight {
		c.group.Forget(k)
	}
	c.entries.Purge()
	c.log.Debug().Msg("cache reset")
}

func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key]++
	return c.gen
}

func (c *Cache) end(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
}

// store adds v unless the cache was invalidated or reset since the load began.
func (c *Cache) store(key string, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug().Str("key", key).Msg("discarding stale load")
		return
	}
	c.entries.Add(key, v)
}

func matchesPrefix(key, prefix string) bool {
	if key == prefix {
		return true
	}
	rest, ok := strings.CutPrefix(key, prefix)
	return ok && rest != "" && strings.ContainsRune("/?|", rune(rest[0]))
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

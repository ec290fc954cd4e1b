package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer is told about hits and misses; metrics plug in here.
type Observer func(hit bool)

// Cache memoizes values per key for TTL. Concurrent misses on the same key
// share one load. Invalidate drops everything, e.g. after the files changed.
type Cache[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	observe Observer

	mu      sync.RWMutex
	entries map[string]entry[V]
	gen     uint64

	group singleflight.Group
}

type entry[V any] struct {
	val     V
	expires time.Time
}

// New creates a cache; ttl <= 0 means entries live until Invalidate.
func New[V any](ttl time.Duration, observe Observer) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		observe: observe,
		entries: make(map[string]entry[V]),
	}
}

func (c *Cache[V]) Get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()

	if ok && (c.ttl <= 0 || c.now().Before(e.expires)) {
		c.report(true)
		return e.val, nil
	}
	c.report(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && (c.ttl <= 0 || c.now().Before(e.expires)) {
			return e.val, nil
		}

		val, err := load(ctx)
		if err != nil {
			return val, err
		}
		c.mu.Lock()
		// 加载期间发生过 Invalidate 的结果不再缓存
		if c.gen == gen {
			c.entries[key] = entry[V]{val: val, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *Cache[V]) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.gen++
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) report(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}

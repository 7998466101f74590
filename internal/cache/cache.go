// Package cache implements the content-addressed, namespaced cache
// layer: per-namespace LRU eviction with single-flight coalescing of
// concurrent misses for the same key, plus an optional Redis-backed
// second tier for durability beyond process lifetime.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Namespace groups related cache keys (script, audio, visual) so that
// eviction pressure and hit-rate accounting can be reasoned about per
// asset kind, matching spec.md's three-namespace cache design.
type Namespace string

const (
	NamespaceScript Namespace = "script"
	NamespaceAudio  Namespace = "audio"
	NamespaceVisual Namespace = "visual"
)

// Backend is the optional durable second tier. A nil Backend means the
// cache is in-process-only.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry struct {
	value []byte
}

// Cache owns one LRU + one singleflight group per namespace.
type Cache struct {
	ttl     time.Duration
	backend Backend

	lrus   map[Namespace]*lru.Cache[string, entry]
	groups map[Namespace]*singleflight.Group
}

// New builds a Cache with the given per-namespace LRU capacity. backend
// may be nil.
func New(lruSize int, ttl time.Duration, backend Backend) (*Cache, error) {
	c := &Cache{
		ttl:     ttl,
		backend: backend,
		lrus:    make(map[Namespace]*lru.Cache[string, entry]),
		groups:  make(map[Namespace]*singleflight.Group),
	}
	for _, ns := range []Namespace{NamespaceScript, NamespaceAudio, NamespaceVisual} {
		l, err := lru.New[string, entry](lruSize)
		if err != nil {
			return nil, err
		}
		c.lrus[ns] = l
		c.groups[ns] = &singleflight.Group{}
	}
	return c, nil
}

// GetOrCompute returns the cached value for key in namespace if present
// (checking the in-process LRU, then the optional backend), otherwise
// calls compute exactly once per key even under concurrent callers
// (via singleflight), stores the result on success, and returns it.
// Failures are never cached.
func (c *Cache) GetOrCompute(ctx context.Context, ns Namespace, key string, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok := c.lrus[ns].Get(key); ok {
		return v.value, nil
	}

	if c.backend != nil {
		if v, ok, err := c.backend.Get(ctx, key); err == nil && ok {
			c.lrus[ns].Add(key, entry{value: v})
			return v, nil
		}
	}

	v, err, _ := c.groups[ns].Do(key, func() (interface{}, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.lrus[ns].Add(key, entry{value: result})
		if c.backend != nil {
			_ = c.backend.Set(ctx, key, result, c.ttl)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// EvictUntil removes least-recently-used entries from every namespace
// until each is at or below targetLen entries. Wired to the resource
// governor's cleanup hook for soft-ceiling auto-cleanup.
func (c *Cache) EvictUntil(targetLen int) {
	for _, l := range c.lrus {
		for l.Len() > targetLen {
			l.RemoveOldest()
		}
	}
}

// Len reports the total number of entries cached across all namespaces,
// mostly useful for tests and the health endpoint.
func (c *Cache) Len() int {
	total := 0
	for _, l := range c.lrus {
		total += l.Len()
	}
	return total
}

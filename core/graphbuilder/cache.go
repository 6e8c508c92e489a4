package graphbuilder

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// GraphCache stores finished graphs under caller-chosen routine keys. The
// builder never stores anything itself; it only computes whether a graph is
// eligible (see Graph.Cacheable).
type GraphCache interface {
	Get(key string) (*Graph, bool)
	Put(key string, g *Graph)
}

type lruGraphCache struct {
	inner *lru.Cache[string, *Graph]
}

// NewLRUGraphCache returns a GraphCache evicting least recently used graphs
// beyond size entries.
func NewLRUGraphCache(size int) (GraphCache, error) {
	c, err := lru.New[string, *Graph](size)
	if err != nil {
		return nil, err
	}
	return &lruGraphCache{inner: c}, nil
}

func (c *lruGraphCache) Get(key string) (*Graph, bool) { return c.inner.Get(key) }
func (c *lruGraphCache) Put(key string, g *Graph)      { c.inner.Add(key, g) }

// CachedBuilder fronts graph construction with a cache and collapses
// concurrent requests for the same routine into a single construction.
type CachedBuilder struct {
	opts  *Options
	cache GraphCache
	group singleflight.Group
}

// NewCachedBuilder returns a caching front end. cache may be nil, which
// disables storage but keeps the single-flight collapsing.
func NewCachedBuilder(opts *Options, cache GraphCache) *CachedBuilder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &CachedBuilder{opts: opts, cache: cache}
}

// Build returns the graph for key, constructing it at most once across
// concurrent callers. Bailouts are returned to every waiting caller and are
// never cached.
func (cb *CachedBuilder) Build(key string, m Method, pool ConstantPool, profile ProfilingOracle) (*Graph, error) {
	if cb.cache != nil {
		if g, ok := cb.cache.Get(key); ok {
			cacheHitCounter.Inc(1)
			return g, nil
		}
	}
	v, err, _ := cb.group.Do(key, func() (interface{}, error) {
		if cb.cache != nil {
			if g, ok := cb.cache.Get(key); ok {
				cacheHitCounter.Inc(1)
				return g, nil
			}
		}
		cacheMissCounter.Inc(1)
		g, err := BuildGraph(m, pool, profile, cb.opts)
		if err != nil {
			return nil, err
		}
		if cb.cache != nil && cb.opts.CacheGraphs && g.Cacheable() {
			cb.cache.Put(key, g)
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Graph), nil
}

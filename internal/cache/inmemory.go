package cache

import (
	"context"
	"strings"
	"time"

	"github.com/kewsys/registry/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 5 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 10 * time.Minute

// InMemoryCache implements Cache on github.com/patrickmn/go-cache. When the
// cache is disabled in config every read misses and writes are dropped.
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

func NewInMemoryCache(cfg *config.Configuration) Cache {
	return &InMemoryCache{
		cache:   goCache.New(DefaultExpiration, DefaultCleanupInterval),
		enabled: cfg.Cache.Enabled,
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration == 0 {
		expiration = goCache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}

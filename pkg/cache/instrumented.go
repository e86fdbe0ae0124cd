package cache

import (
	"context"
	"time"

	"github.com/matzehuels/versolve/pkg/observability"
)

// Instrumented reports the operations of a cache to hooks, labeled with a
// key type such as "resolve" or "sanity".
type Instrumented struct {
	Cache
	keyType string
	hooks   observability.CacheHooks
}

// NewInstrumented wraps c. Nil hooks use the registered ones.
func NewInstrumented(c Cache, keyType string, hooks observability.CacheHooks) *Instrumented {
	if hooks == nil {
		hooks = observability.Cache()
	}
	return &Instrumented{Cache: c, keyType: keyType, hooks: hooks}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			c.hooks.OnCacheHit(ctx, c.keyType)
		} else {
			c.hooks.OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		c.hooks.OnCacheSet(ctx, c.keyType, len(data))
	}
	return err
}

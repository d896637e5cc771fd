package eatsml

import (
	"context"
	"eats/pkg/domain"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a serialized infrastructure export is reused.
const DefaultCacheTTL = 5 * time.Minute

// InfrastructureCache holds serialized infrastructure exports per user and
// option set. Concurrent misses for the same key share one fill.
type InfrastructureCache struct {
	cache *gocache.Cache
	group singleflight.Group
}

// NewInfrastructureCache returns a cache whose entries expire after ttl. A
// non-positive ttl selects DefaultCacheTTL.
func NewInfrastructureCache(ttl time.Duration) *InfrastructureCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &InfrastructureCache{cache: gocache.New(ttl, 2*ttl)}
}

func cacheKey(user domain.User, opts InfraOptions) string {
	return fmt.Sprintf("%d:%t:%t", user.ID, opts.Limited, opts.Annotated)
}

// Get returns the cached export for the user and options, calling fill on
// a miss.
func (c *InfrastructureCache) Get(ctx context.Context, user domain.User, opts InfraOptions,
	fill func(context.Context) ([]byte, error)) ([]byte, error) {
	key := cacheKey(user, opts)
	if v, ok := c.cache.Get(key); ok {
		return v.([]byte), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		data, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of live entries.
func (c *InfrastructureCache) Len() int { return c.cache.ItemCount() }

// Flush drops every entry. Imports call it after committing.
func (c *InfrastructureCache) Flush() { c.cache.Flush() }

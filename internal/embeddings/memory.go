package embeddings

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps embeddings in process with a TTL
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) GetMulti(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	for _, key := range keys {
		if val, ok := c.cache.Get(key); ok {
			found[key] = val.([]float32)
		}
	}
	return found, nil
}

func (c *MemoryCache) SetMulti(ctx context.Context, embeddings map[string][]float32) error {
	for key, emb := range embeddings {
		c.cache.SetDefault(key, emb)
	}
	return nil
}

// Len returns the number of cached embeddings
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "consolidator:embedding:"

// RedisCache shares embeddings between processes through Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetMulti(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = redisKeyPrefix + key
	}

	values, err := c.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var emb []float32
		if err := json.Unmarshal([]byte(s), &emb); err != nil {
			continue
		}
		found[keys[i]] = emb
	}

	return found, nil
}

func (c *RedisCache) SetMulti(ctx context.Context, embeddings map[string][]float32) error {
	if len(embeddings) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for key, emb := range embeddings {
		data, err := json.Marshal(emb)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		pipe.Set(ctx, redisKeyPrefix+key, data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"content-analysis-platform/models"
)

// KeyPrefix namespaces content entries in Redis.
const KeyPrefix = "content:"

// ContentCache is a best-effort read-through cache for content
// responses. The vector index stays authoritative; a miss here is an
// absence signal, never an error.
type ContentCache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *ContentCache {
	return &ContentCache{rdb: rdb}
}

func Key(id string) string {
	return KeyPrefix + id
}

// Get returns the cached response for id, or (nil, nil) when the key is
// missing or expired.
func (c *ContentCache) Get(ctx context.Context, id string) (*models.ContentResponse, error) {
	val, err := c.rdb.Get(ctx, Key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", Key(id), err)
	}

	var resp models.ContentResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, fmt.Errorf("cache entry %s is not valid JSON: %w", Key(id), err)
	}
	return &resp, nil
}

// Set stores the response under its content key for ttl.
func (c *ContentCache) Set(ctx context.Context, resp *models.ContentResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", Key(resp.ID), err)
	}
	if err := c.rdb.Set(ctx, Key(resp.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", Key(resp.ID), err)
	}
	return nil
}

// Package cache holds read-through caches in front of the repositories.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/internal/model"
	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// PostCache caches post detail rows (with images) by slug. The author is
// not stored: callers resolve it on every read.
// A nil *PostCache is valid and caches nothing.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PostCache{client: client, ttl: ttl}
}

func postKey(slug string) string { return fmt.Sprintf("post:slug:%s", slug) }

// GetOrLoad returns the cached post for slug, calling load on a miss.
// Redis errors fall back to load.
func (c *PostCache) GetOrLoad(ctx context.Context, slug string, load func(context.Context) (*model.Post, error)) (*model.Post, error) {
	if c == nil {
		return load(ctx)
	}
	key := postKey(slug)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var p model.Post
		if uErr := json.Unmarshal(data, &p); uErr == nil {
			c.hits.Add(1)
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("post cache get", zap.String("slug", slug), zap.Error(err))
	}

	c.misses.Add(1)
	p, err := load(ctx)
	if err != nil {
		return nil, err
	}
	stored := *p
	stored.Author = nil
	if payload, err := json.Marshal(&stored); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn("post cache set", zap.String("slug", slug), zap.Error(err))
		}
	}
	return p, nil
}

// Invalidate drops the cached entries for the given slugs.
func (c *PostCache) Invalidate(ctx context.Context, slugs ...string) {
	if c == nil || len(slugs) == 0 {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, postKey(s))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("post cache invalidate", zap.Strings("slugs", slugs), zap.Error(err))
	}
}

// Stats returns hit and miss counters.
func (c *PostCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Package cache holds read-through caches in front of the store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"bkpconnect/backend/internal/models"

	"github.com/go-redis/redis/v8"
)

// ProfileCache caches display profiles by user id.
type ProfileCache interface {
	// Get returns the cached profiles; ids that are not cached are simply absent.
	Get(ctx context.Context, ids []string) (map[string]models.Profile, error)
	Set(ctx context.Context, profiles []models.Profile) error
	Invalidate(ctx context.Context, id string) error
}

type redisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProfileCache stores profiles as JSON under "profile:<id>" with a TTL.
func NewRedisProfileCache(client *redis.Client, ttl time.Duration) ProfileCache {
	return &redisProfileCache{client: client, ttl: ttl}
}

func profileKey(id string) string { return "profile:" + id }

func (c *redisProfileCache) Get(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p models.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out[p.ID] = p
	}
	return out, nil
}

func (c *redisProfileCache) Set(ctx context.Context, profiles []models.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range profiles {
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			pipe.Set(ctx, profileKey(p.ID), data, c.ttl)
		}
		return nil
	})
	return err
}

func (c *redisProfileCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, profileKey(id)).Err()
}

type noopProfileCache struct{}

// NewNoopProfileCache is used when Redis is not configured.
func NewNoopProfileCache() ProfileCache { return noopProfileCache{} }

func (noopProfileCache) Get(context.Context, []string) (map[string]models.Profile, error) {
	return map[string]models.Profile{}, nil
}
func (noopProfileCache) Set(context.Context, []models.Profile) error { return nil }
func (noopProfileCache) Invalidate(context.Context, string) error    { return nil }

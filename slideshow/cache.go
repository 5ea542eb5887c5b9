package slideshow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/UoMCS/bigscreen/models"
)

// PlanCache stores the most recent plan. Get returns nil without an error on
// a miss. Plans handed out by a cache are shared and must not be modified.
type PlanCache interface {
	Get(ctx context.Context) (*models.PlacementPlan, error)
	Set(ctx context.Context, plan *models.PlacementPlan) error
	Invalidate(ctx context.Context) error
}

// NoCache builds a fresh plan for every request.
type NoCache struct{}

func (NoCache) Get(context.Context) (*models.PlacementPlan, error) { return nil, nil }
func (NoCache) Set(context.Context, *models.PlacementPlan) error { return nil }
func (NoCache) Invalidate(context.Context) error { return nil }

type cachedPlan struct {
	plan    *models.PlacementPlan
	expires time.Time
}

// MemoryCache keeps one plan per process, swapped atomically.
type MemoryCache struct {
	ttl   time.Duration
	now   func() time.Time
	entry atomic.Pointer[cachedPlan]
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (c *MemoryCache) Get(context.Context) (*models.PlacementPlan, error) {
	entry := c.entry.Load()
	if entry == nil || !c.now().Before(entry.expires) {
		return nil, nil
	}
	return entry.plan, nil
}

func (c *MemoryCache) Set(_ context.Context, plan *models.PlacementPlan) error {
	c.entry.Store(&cachedPlan{plan: plan, expires: c.now().Add(c.ttl)})
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.entry.Store(nil)
	return nil
}

// RedisCache shares the plan between replicas under a single key.
type RedisCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, key string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (*models.PlacementPlan, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan from redis: %w", err)
	}

	var plan models.PlacementPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decoding cached plan: %w", err)
	}
	return &plan, nil
}

func (c *RedisCache) Set(ctx context.Context, plan *models.PlacementPlan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing plan to redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("deleting cached plan: %w", err)
	}
	return nil
}

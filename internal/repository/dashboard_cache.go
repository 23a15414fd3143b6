package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a dashboard is not cached.
var ErrCacheMiss = errors.New("cache miss")

// DashboardCache stores rendered dashboards as JSON.
type DashboardCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

type dashboardCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewDashboardCache returns a Redis-backed cache with a fixed TTL.
func NewDashboardCache(client redis.UniversalClient, ttl time.Duration) DashboardCache {
	return &dashboardCache{client: client, ttl: ttl}
}

const (
	AdminDashboardKey  = "dashboard:admin"
	agentDashboardPref = "dashboard:agent:"
)

// AgentDashboardKey is the cache key for one agent's dashboard.
func AgentDashboardKey(agentID string) string {
	return agentDashboardPref + agentID
}

func (c *dashboardCache) Get(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (c *dashboardCache) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

func (c *dashboardCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

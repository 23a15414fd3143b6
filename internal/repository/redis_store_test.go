package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestNoticeRepository_PushAndDrain(t *testing.T) {
	srv, client := newRedis(t)
	repo := NewNoticeRepository(client, time.Hour, 2)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Push(ctx, "u-1", domain.Notice{TicketID: "t-1", Level: "info", Message: msg}))
	}
	assert.True(t, srv.Exists("notices:u-1"))
	assert.Equal(t, time.Hour, srv.TTL("notices:u-1"))

	notices, err := repo.Drain(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "second", notices[0].Message)
	assert.Equal(t, "third", notices[1].Message)
	assert.False(t, srv.Exists("notices:u-1"))

	notices, err = repo.Drain(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestDashboardCache_RoundTripAndInvalidate(t *testing.T) {
	srv, client := newRedis(t)
	cache := NewDashboardCache(client, time.Hour)
	ctx := context.Background()

	var got domain.AgentDashboard
	assert.ErrorIs(t, cache.Get(ctx, AgentDashboardKey("a-1"), &got), ErrCacheMiss)

	want := domain.AgentDashboard{AgentID: "a-1", AvgResolutionHours: 3.25}
	require.NoError(t, cache.Set(ctx, AgentDashboardKey("a-1"), want))
	assert.Equal(t, time.Hour, srv.TTL("dashboard:agent:a-1"))

	require.NoError(t, cache.Get(ctx, AgentDashboardKey("a-1"), &got))
	assert.Equal(t, want.AgentID, got.AgentID)
	assert.InDelta(t, want.AvgResolutionHours, got.AvgResolutionHours, 0.0001)

	require.NoError(t, cache.Invalidate(ctx, AgentDashboardKey("a-1"), AdminDashboardKey))
	assert.ErrorIs(t, cache.Get(ctx, AgentDashboardKey("a-1"), &got), ErrCacheMiss)
	assert.NoError(t, cache.Invalidate(ctx))
}

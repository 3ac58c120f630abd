package ai

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisEndpointCacheRoundTrip(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewRedisEndpointCache(client, "", time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	candidate := Candidate{APIVersion: APIVersionV1, Model: "gemini-2.0-flash"}
	require.NoError(t, cache.Set(ctx, candidate))

	cached, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, candidate, cached)
	require.True(t, mini.Exists("ai:endpoint:last_good"))

	mini.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisEndpointCacheRejectsGarbage(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	require.NoError(t, mini.Set("endpoint", "not-json"))
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewRedisEndpointCache(client, "endpoint", 0)

	_, ok, err := cache.Get(context.Background())
	require.Error(t, err)
	require.False(t, ok)
}

package redis

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheMissesAndDropsWrites(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	log := logrus.New()
	log.SetOutput(io.Discard)

	cache := New(log)
	require.False(t, cache.Enabled())

	ctx := context.Background()
	require.NoError(t, cache.SetJSON(ctx, "k", map[string]float32{"chin_high": 0.4}, time.Minute))

	var got map[string]float32
	hit, err := cache.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, hit)
	require.Nil(t, got)

	require.NoError(t, cache.Delete(ctx, "k"))
	require.NoError(t, cache.Close())
}

func TestTTLFromEnv(t *testing.T) {
	t.Setenv("PREDICTION_CACHE_TTL", "")
	require.Equal(t, 24*time.Hour, TTLFromEnv())

	t.Setenv("PREDICTION_CACHE_TTL", "90m")
	require.Equal(t, 90*time.Minute, TTLFromEnv())
}

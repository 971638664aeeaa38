//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/dashboard/cache"
	"idbcrm/internal/dashboard/models"
	"idbcrm/pkg/testutil/containers"
)

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))
	c := cache.NewRedis(rc.Client)

	miss, err := c.Get(ctx, "branch:abc")
	require.NoError(t, err)
	assert.Nil(t, miss)

	in := &models.Stats{
		Metrics:   models.Metrics{Total: 7, Converted: 2},
		BySource:  []models.Bucket{{Name: "Direct", Count: 7}},
		Last7Days: []models.Day{{Label: "Jan 02", Count: 1}},
	}
	require.NoError(t, c.Set(ctx, "branch:abc", in, time.Minute))

	out, err := c.Get(ctx, "branch:abc")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Metrics, out.Metrics)
	assert.Equal(t, in.BySource, out.BySource)

	ttl, err := rc.Client.TTL(ctx, "dashboard:stats:branch:abc").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	other, err := c.Get(ctx, "branch:def")
	require.NoError(t, err)
	assert.Nil(t, other)
}

//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/ratelimit/store"
	"idbcrm/pkg/testutil/containers"
)

func TestRedisWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))
	s := store.NewRedis(rc.Client)

	now := time.Now()
	for i := range 2 {
		res, err := s.Allow(ctx, "login:10.0.0.1", 2, time.Minute, now.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := s.Allow(ctx, "login:10.0.0.1", 2, time.Minute, now.Add(5*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	n, err := rc.Client.ZCard(ctx, "ratelimit:window:login:10.0.0.1").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "rejected hits are not kept")

	res, err = s.Allow(ctx, "login:10.0.0.1", 2, time.Minute, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLockout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))
	s := store.NewRedis(rc.Client)

	missing, err := s.GetLockout(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now()
	for i := 1; i <= 3; i++ {
		l, err := s.RecordFailure(ctx, "a@example.com", now, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, l.FailureCount)
	}

	until := now.Add(10 * time.Minute)
	require.NoError(t, s.Lock(ctx, "a@example.com", until))
	l, err := s.GetLockout(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.IsLockedAt(now.Add(time.Minute)))

	ttl, err := rc.Client.PTTL(ctx, "ratelimit:lockout:a@example.com").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 5*time.Minute)

	require.NoError(t, s.ClearLockout(ctx, "a@example.com"))
	l, err = s.GetLockout(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, l)
}

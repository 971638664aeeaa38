package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbcrm/internal/dashboard/models"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	miss, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, "all", &models.Stats{Metrics: models.Metrics{Total: 3}}, time.Minute))
	now = now.Add(59 * time.Second)
	hit, err := c.Get(ctx, "all")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 3, hit.Metrics.Total)

	now = now.Add(time.Second)
	expired, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripAndOrdering(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 123, time.UTC)
	c := Cursor{CreatedAt: at, Seq: 42}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, int64(42), decoded.Seq)

	assert.True(t, c.Before(&Event{CreatedAt: at, Seq: 41}))
	assert.False(t, c.Before(&Event{CreatedAt: at, Seq: 42}))
	assert.True(t, c.Before(&Event{CreatedAt: at.Add(-time.Second), Seq: 99}))
	assert.False(t, c.Before(&Event{CreatedAt: at.Add(time.Second), Seq: 1}))
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultPageLimit, PageRequest{}.EffectiveLimit())
	assert.Equal(t, MaxPageLimit, PageRequest{Limit: 1000}.EffectiveLimit())
	assert.Equal(t, 7, PageRequest{Limit: 7}.EffectiveLimit())
}

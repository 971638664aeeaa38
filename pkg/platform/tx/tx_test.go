package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunner(t *testing.T) {
	t.Run("nested calls join the outer unit", func(t *testing.T) {
		runner := NewLocal()
		calls := 0
		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			calls++
			return runner.RunInTx(ctx, func(context.Context) error {
				calls++
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("propagates errors", func(t *testing.T) {
		boom := errors.New("boom")
		err := NewLocal().RunInTx(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}

package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	t.Run("blocks a second holder of the same key", func(t *testing.T) {
		t.Parallel()

		var k keyedMutex
		unlock, err := k.Lock(context.Background(), "a")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = k.Lock(ctx, "a")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock2, err := k.Lock(context.Background(), "a")
		require.NoError(t, err)
		unlock2()
	})

	t.Run("does not block other keys", func(t *testing.T) {
		t.Parallel()

		var k keyedMutex
		unlockA, err := k.Lock(context.Background(), "a")
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := k.Lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("drops released keys", func(t *testing.T) {
		t.Parallel()

		var k keyedMutex
		unlock, err := k.Lock(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, 1, k.len())

		unlock()
		assert.Zero(t, k.len())
	})
}

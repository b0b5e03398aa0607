package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricstore/storefront/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("resolves value", func(t *testing.T) {
		f := async.Go(context.Background(), func(context.Context) (int, error) { return 42, nil })
		v, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.IsComplete())
	})

	t.Run("resolves error", func(t *testing.T) {
		boom := errors.New("boom")
		f := async.Go(context.Background(), func(context.Context) (string, error) { return "", boom })
		<-f.Done()
		_, err := f.Result()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context skips work", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		f := async.Go(ctx, func(context.Context) (int, error) { called = true; return 1, nil })
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("await respects caller context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		f := async.Go(context.Background(), func(context.Context) (int, error) { <-release; return 1, nil })

		_, err := f.Result()
		assert.ErrorIs(t, err, async.ErrNotComplete)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = f.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, f.IsComplete())
	})
}

func TestResolved(t *testing.T) {
	f := async.Resolved("ready", nil)
	assert.True(t, f.IsComplete())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

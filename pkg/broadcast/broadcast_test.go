package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricstore/storefront/pkg/broadcast"
)

func TestBroadcaster_Publish(t *testing.T) {
	t.Run("fans out to every subscriber", func(t *testing.T) {
		b := broadcast.New[int](4)
		defer b.Close()

		s1 := b.Subscribe(context.Background())
		s2 := b.Subscribe(context.Background())

		assert.Equal(t, 2, b.Publish(7))
		assert.Equal(t, 7, <-s1.C())
		assert.Equal(t, 7, <-s2.C())
	})

	t.Run("drops for full buffers without blocking", func(t *testing.T) {
		b := broadcast.New[int](1)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		assert.Equal(t, 1, b.Publish(1))
		assert.Equal(t, 0, b.Publish(2))
		assert.Equal(t, 1, <-sub.C())
		assert.Equal(t, 1, b.Len(), "slow subscriber stays registered")

		assert.Equal(t, 1, b.Publish(3))
		assert.Equal(t, 3, <-sub.C())
	})

	t.Run("no subscribers", func(t *testing.T) {
		b := broadcast.New[string](0)
		assert.Equal(t, 0, b.Publish("x"))
	})
}

func TestBroadcaster_Lifecycle(t *testing.T) {
	t.Run("subscription close", func(t *testing.T) {
		b := broadcast.New[int](1)
		sub := b.Subscribe(context.Background())
		sub.Close()
		sub.Close()

		_, ok := <-sub.C()
		assert.False(t, ok)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("context cancellation", func(t *testing.T) {
		b := broadcast.New[int](1)
		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		select {
		case _, ok := <-sub.C():
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscription not closed after cancel")
		}
		assert.Equal(t, 0, b.Len())
	})

	t.Run("close ends subscriptions", func(t *testing.T) {
		b := broadcast.New[int](1)
		sub := b.Subscribe(context.Background())
		b.Close()
		b.Close()

		_, ok := <-sub.C()
		assert.False(t, ok)
		assert.Equal(t, 0, b.Publish(1))

		late := b.Subscribe(context.Background())
		_, ok = <-late.C()
		require.False(t, ok)
	})
}

package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestKeyed_TimeoutWhileHeld(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "unit:a", time.Second)
	require.NoError(t, err)

	_, err = k.Acquire(context.Background(), "unit:a", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	release()
	release()

	release, err = k.Acquire(context.Background(), "unit:a", 20*time.Millisecond)
	require.NoError(t, err)
	release()

	assert.Equal(t, 0, k.Len())
}

func TestKeyed_NonPositiveTimeoutIsBounded(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "unit:a", time.Second)
	require.NoError(t, err)

	defer release()

	start := time.Now()

	_, err = k.Acquire(context.Background(), "unit:a", 0)
	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), DefaultTimeout)
}

func TestKeyed_IndependentKeys(t *testing.T) {
	k := New()

	releaseA, err := k.Acquire(context.Background(), "unit:a", time.Second)
	require.NoError(t, err)

	defer releaseA()

	releaseB, err := k.Acquire(context.Background(), "unit:b", 20*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestKeyed_CanceledContext(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "room:1", time.Second)
	require.NoError(t, err)

	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = k.Acquire(ctx, "room:1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestKeyed_MutualExclusion(t *testing.T) {
	k := New()

	var inside, maxInside atomic.Int32

	g, ctx := errgroup.WithContext(context.Background())

	for range 16 {
		g.Go(func() error {
			release, err := k.Acquire(ctx, "unit:hot", 5*time.Second)
			if err != nil {
				return err
			}
			defer release()

			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}

			time.Sleep(time.Millisecond)
			inside.Add(-1)

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, k.Len())
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesSubmittedWork(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 16, func(_ context.Context, n int) error {
		processed.Add(int64(n))
		return nil
	})

	require.NoError(t, pool.Start(context.Background()))
	for i := 1; i <= 5; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(2*time.Second))

	assert.Equal(t, int64(15), processed.Load())
	stats := pool.Stats()
	assert.Equal(t, int64(5), stats.Submitted)
	assert.Equal(t, int64(5), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
}

func TestPoolDoubleStart(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolSubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, int) error { return nil })
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		<-block
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	// First item occupies the worker, second fills the queue.
	require.NoError(t, pool.Submit(1))
	var errFull error
	for range 10 {
		if errFull = pool.Submit(2); errFull != nil {
			break
		}
	}
	assert.ErrorIs(t, errFull, ErrQueueFull)
	assert.Positive(t, pool.Stats().Dropped)

	close(block)
	require.NoError(t, pool.Stop(2*time.Second))
}

func TestPoolCountsFailures(t *testing.T) {
	pool := NewPool(1, 8, func(_ context.Context, n int) error {
		if n%2 == 0 {
			return errors.New("even numbers fail")
		}
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	for i := 1; i <= 4; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(2*time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(4), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPoolStopDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	var order []int
	pool := NewPool(1, 16, func(_ context.Context, n int) error {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	for i := range 8 {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, 8, "queued work is drained before stop returns")
}

func TestPoolNilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewPool[int](1, 1, nil)
	})
}

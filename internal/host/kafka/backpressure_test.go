package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_EmptyBucketBlocks(t *testing.T) {
	c := NewController(2, 1, time.Hour)
	defer c.Close()

	require.NoError(t, c.Acquire(context.Background()))
	require.NoError(t, c.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	stop := context.AfterFunc(ctx, c.Wake)
	defer stop()
	require.ErrorIs(t, c.Acquire(ctx), context.DeadlineExceeded)
}

func TestController_AcquireWaitsForRefill(t *testing.T) {
	c := NewController(1, 1, 10*time.Millisecond)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Acquire(ctx))
	start := time.Now()
	require.NoError(t, c.Acquire(ctx))
	assert.Greater(t, time.Since(start), time.Millisecond)
}

func TestController_AcquireHonoursContext(t *testing.T) {
	c := NewController(1, 1, time.Hour)
	defer c.Close()
	require.NoError(t, c.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, c.Wake)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- c.Acquire(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancel")
	}
}

func TestController_CloseReleasesWaiters(t *testing.T) {
	c := NewController(1, 1, time.Hour)
	require.NoError(t, c.Acquire(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.Acquire(context.Background()) }()
	c.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errControllerClosed)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Close")
	}
}

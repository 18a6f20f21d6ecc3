package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCacheAcquire(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	ok, err := c.Acquire(context.Background(), "u1:batch", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Same key inside the window is rejected.
	ok, err = c.Acquire(context.Background(), "u1:batch", 5*time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// Different keys are independent.
	ok, err = c.Acquire(context.Background(), "u2:batch", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The key frees up once the window passes.
	now = now.Add(6 * time.Minute)
	ok, err = c.Acquire(context.Background(), "u1:batch", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryCacheCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		_, err := c.Acquire(context.Background(), key, time.Minute)
		require.NoError(t, err)
	}

	require.Equal(t, 0, c.Cleanup())

	now = now.Add(2 * time.Minute)
	require.Equal(t, 3, c.Cleanup())
	require.Equal(t, 0, c.Cleanup())
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionCache_RoundTripAndExpiry(t *testing.T) {
	c, err := NewInstructionCache(10)
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	ctx := context.Background()
	result := map[string]interface{}{"status": "completed", "n": 1}
	require.NoError(t, c.Store(ctx, "h1", result, time.Hour))

	got, ok, err := c.Lookup(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, result, got)

	now = now.Add(59 * time.Minute)
	_, ok, err = c.Lookup(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = c.Lookup(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire at cached_at + ttl")
	assert.Equal(t, 0, c.Len())
}

func TestInstructionCache_Miss(t *testing.T) {
	c, err := NewInstructionCache(0)
	require.NoError(t, err)

	_, ok, err := c.Lookup(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstructionCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewInstructionCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "a", map[string]interface{}{"v": "a"}, time.Hour))
	require.NoError(t, c.Store(ctx, "b", map[string]interface{}{"v": "b"}, time.Hour))
	_, _, _ = c.Lookup(ctx, "a")
	require.NoError(t, c.Store(ctx, "c", map[string]interface{}{"v": "c"}, time.Hour))

	_, ok, _ := c.Lookup(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Lookup(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestInstructionCache_ReturnsCopies(t *testing.T) {
	c, err := NewInstructionCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	result := map[string]interface{}{"v": "orig"}
	require.NoError(t, c.Store(ctx, "k", result, time.Hour))
	result["v"] = "mutated"

	got, ok, _ := c.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "orig", got["v"])
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*InstructionCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewInstructionCache(client, zap.NewNop()), srv
}

func TestInstructionCache_RoundTrip(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "abc", map[string]interface{}{"status": "completed"}, time.Hour))
	assert.True(t, srv.Exists("dago:cache:abc"))

	got, ok, err := c.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "completed", got["status"])
}

func TestInstructionCache_KeepsNumericTypes(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	result := map[string]interface{}{
		"count": 3,
		"ratio": 1.5,
		"output": map[string]interface{}{
			"ids":  []interface{}{1, 2},
			"name": "rows",
		},
	}
	require.NoError(t, c.Store(ctx, "nums", result, time.Hour))

	got, ok, err := c.Lookup(ctx, "nums")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result, got)
}

func TestInstructionCache_NativeTTL(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "abc", map[string]interface{}{"status": "completed"}, time.Minute))
	srv.FastForward(2 * time.Minute)

	_, ok, err := c.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstructionCache_LazyExpiry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Store(ctx, "abc", map[string]interface{}{"x": 1}, time.Minute))

	c.now = func() time.Time { return now.Add(time.Minute) }
	_, ok, err := c.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

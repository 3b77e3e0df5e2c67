package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

type entry struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisCache(t)
	assert.True(t, c.Enabled())

	var got []entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []entry{{ID: "t1", Amount: 50}}, time.Minute))
	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []entry{{ID: "t1", Amount: 50}}, got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestSetExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisCache(t)
	require.NoError(t, c.Set(ctx, "k", 1, 60*time.Second))

	mr.FastForward(59 * time.Second)
	var v int
	found, _ := c.Get(ctx, "k", &v)
	assert.True(t, found)

	mr.FastForward(2 * time.Second)
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateStartsNewGeneration(t *testing.T) {
	ctx := context.Background()
	_, c := newRedisCache(t)

	first, err := c.VersionedKey(ctx, KeyPendingDeposits)
	require.NoError(t, err)
	assert.Equal(t, KeyPendingDeposits+":v0", first)
	require.NoError(t, c.Set(ctx, first, []entry{{ID: "t1"}}, time.Minute))

	c.Invalidate(ctx, KeyPendingDeposits)

	// A fill computed before the invalidation may still land on the old generation
	require.NoError(t, c.Set(ctx, first, []entry{{ID: "stale"}}, time.Minute))

	second, err := c.VersionedKey(ctx, KeyPendingDeposits)
	require.NoError(t, err)
	assert.Equal(t, KeyPendingDeposits+":v1", second)
	var got []entry
	found, err := c.Get(ctx, second, &got)
	require.NoError(t, err)
	assert.False(t, found, "readers never see the previous generation")

	other, err := c.VersionedKey(ctx, KeyPendingWithdrawals)
	require.NoError(t, err)
	assert.Equal(t, KeyPendingWithdrawals+":v0", other, "generations are per key")
}

func TestVersionedKeyReportsRedisErrors(t *testing.T) {
	mr, c := newRedisCache(t)
	mr.SetError("ERR injected failure")

	_, err := c.VersionedKey(context.Background(), KeyPendingDeposits)
	assert.Error(t, err)
	c.Invalidate(context.Background(), KeyPendingDeposits) // logged, not fatal
}

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodops-backend/pkg/config"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIncrWithTTLWindowResets(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	key := client.RateLimitKey("api:user:1")

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, time.Minute, mr.TTL("fo:rate_limit:api:user:1"))

	mr.FastForward(time.Minute + time.Second)
	got, err := client.IncrWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got, "a new window starts from one")
}

func TestIncrWithoutTTLNeverExpires(t *testing.T) {
	mr, client := newTestClient(t)
	key := client.CounterKey("lifetime")

	_, err := client.IncrWithTTL(context.Background(), key, 0)
	require.NoError(t, err)
	assert.Zero(t, mr.TTL(key))
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "fo:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "fo:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "fo:counter:orders:20261017", client.CounterKey("orders:20261017"))
	assert.Equal(t, "fo:lock:cron-worker:prod", client.LockKey("cron-worker:prod"))
	assert.Equal(t, "fo:idempotency:scope", client.IdempotencyKey("scope", " "))
}

func TestIncrWithTTLKeepsFirstExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	key := client.CounterKey("orders:20261017")

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, 48*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		mr.FastForward(time.Hour)
	}
	assert.Equal(t, 45*time.Hour, mr.TTL(key))
}

func TestIncrWithTTLRepairsMissingExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	key := client.CounterKey("orders:20261016")
	require.NoError(t, mr.Set(key, "41"))

	got, err := client.IncrWithTTL(ctx, key, 48*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
	assert.Equal(t, 48*time.Hour, mr.TTL(key))
}

func TestSetNXGetDel(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	set, err := client.SetNX(ctx, "fo:test", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, set)
	set, err = client.SetNX(ctx, "fo:test", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	val, err := client.Get(ctx, "fo:test")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	require.NoError(t, client.Del(ctx, "fo:test"))
	assert.False(t, mr.Exists("fo:test"))
	_, err = client.Get(ctx, "fo:test")
	assert.True(t, errors.Is(err, redis.Nil))
	require.NoError(t, client.Del(ctx))
}

func TestDelIfEquals(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("fo:lock:x", "owner-a"))

	deleted, err := client.DelIfEquals(ctx, "fo:lock:x", "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, mr.Exists("fo:lock:x"))

	deleted, err = client.DelIfEquals(ctx, "fo:lock:x", "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("fo:lock:x"))
}

func TestZeroClientReportsNotInitialized(t *testing.T) {
	var client Client
	ctx := context.Background()
	assert.ErrorIs(t, client.Ping(ctx), errNotInitialized)
	_, err := client.IncrWithTTL(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/3", PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
}

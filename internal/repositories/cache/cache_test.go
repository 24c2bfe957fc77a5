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

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newRedisCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(client, time.Minute), mr
}

func TestCacheService_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, mr := newRedisCache(t)

	key := GenerateKey("network", "graph", "abc")
	assert.Equal(t, "network:graph:abc", key)

	var got payload
	found, err := svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.SetWithTTL(ctx, key, payload{Name: "a", Count: 2}, 10*time.Second))
	found, err = svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	mr.FastForward(11 * time.Second)
	found, err = svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.HealthCheck(ctx))
}

func TestCacheService_ClampsTTL(t *testing.T) {
	ctx := context.Background()
	svc, mr := newRedisCache(t)

	require.NoError(t, svc.SetBytes(ctx, "forever", []byte("x"), 0))
	assert.Equal(t, time.Minute, mr.TTL("forever"))

	require.NoError(t, svc.SetBytes(ctx, "long", []byte("x"), 365*24*time.Hour))
	assert.Equal(t, MaxTTL, mr.TTL("long"))
}

func TestCacheService_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	svc, mr := newRedisCache(t)

	for _, k := range []string{"rl:1", "rl:2", "other"} {
		require.NoError(t, svc.SetBytes(ctx, k, []byte("1"), time.Minute))
	}
	require.NoError(t, svc.DeletePrefix(ctx, "rl:"))

	assert.False(t, mr.Exists("rl:1"))
	assert.False(t, mr.Exists("rl:2"))
	assert.True(t, mr.Exists("other"))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, SetJSON(ctx, c, "k", payload{Name: "x"}, 30*time.Second))

	var got payload
	found, err := GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", got.Name)

	now = now.Add(30 * time.Second)
	found, err = GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_BoundedEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "first", []byte("1"), 10*time.Second))
	require.NoError(t, c.SetBytes(ctx, "later", []byte("2"), 50*time.Second))
	_, found, _ := c.GetBytes(ctx, "first")
	require.True(t, found)
	require.NoError(t, c.SetBytes(ctx, "new", []byte("3"), 20*time.Second))

	assert.Equal(t, 2, c.Len())
	_, found, _ = c.GetBytes(ctx, "later")
	assert.False(t, found, "least recently used entry is evicted")
	_, found, _ = c.GetBytes(ctx, "first")
	assert.True(t, found)

	// overwriting an existing key never evicts
	require.NoError(t, c.SetBytes(ctx, "first", []byte("4"), 50*time.Second))
	assert.Equal(t, 2, c.Len())
	got, found, _ := c.GetBytes(ctx, "first")
	require.True(t, found)
	assert.Equal(t, []byte("4"), got)

	require.NoError(t, c.Delete(ctx, "first", "new"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_DefaultAndMaxTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "forever", []byte("x"), 90*24*time.Hour))
	now = now.Add(MaxTTL - time.Second)
	_, found, _ := c.GetBytes(ctx, "forever")
	assert.True(t, found)

	now = now.Add(time.Second)
	_, found, _ = c.GetBytes(ctx, "forever")
	assert.False(t, found, "ttl is clamped to MaxTTL")
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)

	require.NoError(t, c.SetBytes(ctx, "rl:1", []byte("1"), 0))
	require.NoError(t, c.SetBytes(ctx, "rl:2", []byte("2"), 0))
	require.NoError(t, c.SetBytes(ctx, "network:graph:x", []byte("g"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "rl:"))
	assert.Equal(t, 1, c.Len())
	_, found, _ := c.GetBytes(ctx, "network:graph:x")
	assert.True(t, found)
}

func TestStorageAdapter(t *testing.T) {
	svc, mr := newRedisCache(t)
	storage := NewStorageAdapter(svc, "ratelimit:")

	val, err := storage.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, storage.Set("10.0.0.1", []byte("hits"), 5*time.Second))
	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))

	val, err = storage.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hits"), val)

	require.NoError(t, storage.Reset())
	assert.False(t, mr.Exists("ratelimit:10.0.0.1"))

	memCache := NewMemoryCache(4, time.Minute)
	mem := NewStorageAdapter(memCache, "ratelimit:")
	require.NoError(t, mem.Set("k", []byte("v"), time.Second))
	require.NoError(t, mem.Delete("k"))
	val, err = mem.Get("k")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, mem.Set("a", []byte("1"), time.Minute))
	require.NoError(t, memCache.SetBytes(context.Background(), "other", []byte("2"), time.Minute))
	assert.NoError(t, mem.Reset())
	assert.Equal(t, 1, memCache.Len())
	assert.NoError(t, mem.Close())
}

package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func testCart() *domain.Cart {
	return &domain.Cart{
		ID: "0b7c9a52-4f3e-4d1a-9c59-0d6f3b1f6a11",
		Items: []domain.CartItem{
			{ID: 1, Product: domain.ProductSummary{ID: 1, Title: "A", UnitPrice: decimal.RequireFromString("10.00")}, Quantity: 2},
			{ID: 2, Product: domain.ProductSummary{ID: 2, Title: "B", UnitPrice: decimal.RequireFromString("5.00")}, Quantity: 1},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()

	cartJSON, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey(cart.ID), string(cartJSON)))

	result, err := cache.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, result.ID)
	require.Len(t, result.Items, 2)
	assert.Equal(t, cart.ID, result.Items[0].CartID)
	assert.True(t, cart.TotalPrice().Equal(result.TotalPrice()))
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("broken"), "{not json"))

	_, err := cache.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_WritesKeyWithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()

	require.NoError(t, cache.Set(context.Background(), cart))

	assert.True(t, mr.Exists(cacheKey(cart.ID)))
	ttl := mr.TTL(cacheKey(cart.ID))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()

	require.NoError(t, cache.Set(context.Background(), cart))
	mr.FastForward(20 * time.Minute)

	_, err := cache.Get(context.Background(), cart.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()

	require.NoError(t, cache.Set(context.Background(), cart))
	require.NoError(t, cache.Delete(context.Background(), cart.ID))
	assert.False(t, mr.Exists(cacheKey(cart.ID)))

	require.NoError(t, cache.Delete(context.Background(), "never-set"))
}

func TestTombstone_BlocksLateFill(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, cart))
	require.NoError(t, cache.Tombstone(ctx, cart.ID))
	assert.False(t, mr.Exists(cacheKey(cart.ID)))

	// a fill that read the cart before it was deleted lands afterwards
	require.NoError(t, cache.Set(ctx, cart))
	_, err := cache.Get(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestTombstone_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := testCart()
	ctx := context.Background()

	require.NoError(t, cache.Tombstone(ctx, cart.ID))
	assert.Equal(t, time.Minute, mr.TTL(tombstoneKey(cart.ID)))

	mr.FastForward(2 * time.Minute)
	require.NoError(t, cache.Set(ctx, cart))
	assert.True(t, mr.Exists(cacheKey(cart.ID)))
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

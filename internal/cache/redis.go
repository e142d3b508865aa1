package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// setUnlessGone writes KEYS[1] only while the tombstone KEYS[2] is absent.
var setUnlessGone = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:       client,
		baseTTL:      15 * time.Minute,
		tombstoneTTL: time.Minute,
	}
}

// RedisCache stores carts as JSON under "cart:<id>" with a jittered TTL.
// A deleted cart leaves "cart:<id>:gone" behind for tombstoneTTL.
type RedisCache struct {
	client       *redis.Client
	baseTTL      time.Duration
	tombstoneTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
	}

	return &cart, nil
}

func (r RedisCache) Set(ctx context.Context, cart *domain.Cart) error {
	jsonCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	keys := []string{cacheKey(cart.ID), tombstoneKey(cart.ID)}
	ttl := (r.baseTTL + jitter).Milliseconds()
	if err := setUnlessGone.Run(ctx, r.client, keys, jsonCart, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, cacheKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func (r RedisCache) Tombstone(ctx context.Context, cartID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKey(cartID), 1, r.tombstoneTTL)
		pipe.Del(ctx, cacheKey(cartID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis tombstone failed: %w", err)
	}
	return nil
}

func cacheKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

func tombstoneKey(cartID string) string {
	return cacheKey(cartID) + ":gone"
}

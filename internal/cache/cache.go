package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	Set(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
	// Tombstone drops the entry of a cart that no longer exists and refuses
	// fills for it for a while, so an in-flight Set cannot bring it back.
	Tombstone(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")

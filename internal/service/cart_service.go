package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo    repository.CartRepository
	catalog repository.CatalogRepository
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, catalog repository.CatalogRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
	}
}

func (s *CartService) CreateCart(ctx context.Context) (*domain.Cart, error) {
	return s.repo.CreateCart(ctx, uuid.NewString(), time.Now().UTC())
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache get error", slog.String("cart_id", cartID), slog.Any("error", err))
		}

		cart, err = s.repo.GetCart(ctx, cartID)
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(ctx, cart); errSet != nil {
				slog.Warn("cache set error", slog.String("cart_id", cart.ID), slog.Any("error", errSet))
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) DeleteCart(ctx context.Context, cartID string) error {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		return err
	}

	forgetCart(s.cache, cartID)
	return nil
}

// AddItem adds quantity units of the product, merging with an existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, cartID string, productID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cartID, err := s.requireCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	exists, err := s.catalog.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUnknownProduct
	}

	item, err := s.repo.AddItem(ctx, cartID, productID, quantity)
	if err != nil {
		slog.ErrorContext(ctx, "repo add item error", slog.String("cart_id", cartID), slog.Any("error", err))
		return nil, err
	}

	s.invalidateCache(cartID)
	return item, nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cartID, err := s.requireCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.UpdateItemQuantity(ctx, cartID, itemID, quantity)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(cartID)
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID string, itemID int64) error {
	cartID, err := s.requireCart(ctx, cartID)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveItem(ctx, cartID, itemID); err != nil {
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

func (s *CartService) requireCart(ctx context.Context, cartID string) (string, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return "", err
	}

	exists, err := s.repo.CartExists(ctx, cartID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", domain.ErrCartNotFound
	}
	return cartID, nil
}

func (s *CartService) invalidateCache(cartID string) {
	invalidateCart(s.cache, cartID)
}

func invalidateCart(c cache.CartCache, cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Delete(ctx, cartID); err != nil {
		slog.Warn("cache invalidate error", slog.String("cart_id", cartID), slog.Any("error", err))
	}
}

// forgetCart is invalidateCart for a cart that is gone for good. The tombstone
// stops a GetCart fill that raced with the delete from caching it again.
func forgetCart(c cache.CartCache, cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Tombstone(ctx, cartID); err != nil {
		slog.Warn("cache tombstone error", slog.String("cart_id", cartID), slog.Any("error", err))
	}
}

// normalizeCartID returns the canonical form of a cart id. A malformed id cannot name a cart.
func normalizeCartID(cartID string) (string, error) {
	id, err := uuid.Parse(cartID)
	if err != nil {
		return "", domain.ErrCartNotFound
	}
	return id.String(), nil
}

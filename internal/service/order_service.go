package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

type OrderService struct {
	orders repository.OrderRepository
	carts  repository.CartRepository
	cache  cache.CartCache
	now    func() time.Time
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, cache cache.CartCache) *OrderService {
	return &OrderService{
		orders: orders,
		carts:  carts,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder turns the cart into an order owned by the caller's customer and deletes the cart.
// A missing cart is ErrCartNotFound and a cart without items is ErrEmptyCart; in both cases
// nothing is written.
func (s *OrderService) PlaceOrder(ctx context.Context, cartID, callerUserID string) (*domain.Order, error) {
	cartID, err := normalizeCartID(cartID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	order, err := s.orders.PlaceOrder(ctx, cartID, callerUserID, s.now())
	if err != nil {
		if domain.KindOf(err) == domain.KindStorage {
			slog.ErrorContext(ctx, "place order failed", slog.String("cart_id", cartID), slog.Any("error", err))
		}
		return nil, err
	}

	forgetCart(s.cache, cartID)
	slog.InfoContext(ctx, "order placed",
		slog.Int64("order_id", order.ID),
		slog.Int64("customer_id", order.CustomerID),
		slog.Int("items", len(order.Items)))
	return order, nil
}

func (s *OrderService) GetCustomer(ctx context.Context, callerUserID string) (*domain.Customer, error) {
	return s.orders.GetOrCreateCustomer(ctx, callerUserID)
}

// GetOrder returns the order if it belongs to the caller. Staff may read any order.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, callerUserID string, staff bool) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if staff {
		return order, nil
	}

	customer, err := s.orders.GetOrCreateCustomer(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customer.ID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, callerUserID string) ([]*domain.Order, error) {
	customer, err := s.orders.GetOrCreateCustomer(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	return s.orders.ListOrdersByCustomer(ctx, customer.ID)
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus, staff bool) (*domain.Order, error) {
	if !staff {
		return nil, domain.ErrStaffOnly
	}
	return s.ApplyPaymentStatus(ctx, orderID, status)
}

// ApplyPaymentStatus is the trusted path used by the payment event consumer.
func (s *OrderService) ApplyPaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidPaymentStatus
	}
	return s.orders.UpdatePaymentStatus(ctx, orderID, status)
}

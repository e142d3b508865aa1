package repository

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type CartRepository interface {
	CreateCart(ctx context.Context, cartID string, createdAt time.Time) (*domain.Cart, error)
	CartExists(ctx context.Context, cartID string) (bool, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID string, productID int64, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, cartID string, itemID int64) error
	DeleteCart(ctx context.Context, cartID string) error
}

type CatalogRepository interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
	GetUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
}

type OrderRepository interface {
	GetOrCreateCustomer(ctx context.Context, userID string) (*domain.Customer, error)
	PlaceOrder(ctx context.Context, cartID, userID string, placedAt time.Time) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

var (
	_ CartRepository    = (*Repository)(nil)
	_ CatalogRepository = (*Repository)(nil)
	_ OrderRepository   = (*Repository)(nil)
	_ OutboxRepository  = (*Repository)(nil)
)

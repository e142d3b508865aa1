package http

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"min=1"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

type PlaceOrderRequestDTO struct {
	CartID string `json:"cart_id" validate:"required"`
}

type UpdatePaymentStatusRequestDTO struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending complete failed"`
}

// Money is rendered with two decimal places.
type ProductDTO struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
}

type CartItemDTO struct {
	ID         int64      `json:"id"`
	Product    ProductDTO `json:"product"`
	Quantity   int        `json:"quantity"`
	TotalPrice string     `json:"total_price"`
}

type CartDTO struct {
	ID         string        `json:"id"`
	Items      []CartItemDTO `json:"items"`
	TotalPrice string        `json:"total_price"`
	CreatedAt  time.Time     `json:"created_at"`
}

type OrderItemDTO struct {
	ID        int64      `json:"id"`
	Product   ProductDTO `json:"product"`
	UnitPrice string     `json:"unit_price"`
	Quantity  int        `json:"quantity"`
}

type OrderDTO struct {
	ID            int64          `json:"id"`
	PlacedAt      time.Time      `json:"placed_at"`
	Customer      int64          `json:"customer"`
	PaymentStatus string         `json:"payment_status"`
	Items         []OrderItemDTO `json:"items"`
}

type CustomerDTO struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	Membership string `json:"membership"`
}

func toProductDTO(p domain.ProductSummary) ProductDTO {
	return ProductDTO{ID: p.ID, Title: p.Title, UnitPrice: p.UnitPrice.StringFixed(2)}
}

func toCartItemDTO(item domain.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:         item.ID,
		Product:    toProductDTO(item.Product),
		Quantity:   item.Quantity,
		TotalPrice: item.TotalPrice().StringFixed(2),
	}
}

func toCartDTO(cart *domain.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, toCartItemDTO(item))
	}
	return CartDTO{
		ID:         cart.ID,
		Items:      items,
		TotalPrice: cart.TotalPrice().StringFixed(2),
		CreatedAt:  cart.CreatedAt,
	}
}

func toOrderDTO(order *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			Product:   toProductDTO(item.Product),
			UnitPrice: item.UnitPrice.StringFixed(2),
			Quantity:  item.Quantity,
		})
	}
	return OrderDTO{
		ID:            order.ID,
		PlacedAt:      order.PlacedAt,
		Customer:      order.CustomerID,
		PaymentStatus: order.PaymentStatus.String(),
		Items:         items,
	}
}

func toCustomerDTO(c *domain.Customer) CustomerDTO {
	return CustomerDTO{ID: c.ID, UserID: c.UserID, Membership: string(c.Membership)}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced = "order.placed"
)

type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// OrderPlacedEvent is published after an order commits.
type OrderPlacedEvent struct {
	OrderID    int64             `json:"order_id"`
	CustomerID int64             `json:"customer_id"`
	UserID     string            `json:"user_id"`
	Items      []OrderPlacedItem `json:"items"`
	Total      decimal.Decimal   `json:"total"`
	PlacedAt   time.Time         `json:"placed_at"`
}

func NewOrderPlacedEvent(order *Order, userID string) OrderPlacedEvent {
	items := make([]OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.Product.ID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return OrderPlacedEvent{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		UserID:     userID,
		Items:      items,
		Total:      order.TotalAmount(),
		PlacedAt:   order.PlacedAt,
	}
}

// PaymentEvent is consumed from the payment provider's topic.
type PaymentEvent struct {
	OrderID       int64         `json:"order_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

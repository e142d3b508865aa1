package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusComplete PaymentStatus = "complete"
	PaymentStatusFailed   PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusComplete, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// OrderItem keeps the unit price captured when the order was placed.
type OrderItem struct {
	ID        int64
	OrderID   int64
	Product   ProductSummary
	UnitPrice decimal.Decimal
	Quantity  int
}

type Order struct {
	ID            int64
	CustomerID    int64
	PlacedAt      time.Time
	PaymentStatus PaymentStatus
	Items         []OrderItem
}

func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

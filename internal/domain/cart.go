package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string     `json:"id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

type CartItem struct {
	ID       int64          `json:"id"`
	CartID   string         `json:"-"`
	Product  ProductSummary `json:"product"`
	Quantity int            `json:"quantity"`
}

// TotalPrice is quantity times the product's current unit price.
func (i CartItem) TotalPrice() decimal.Decimal {
	return i.Product.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.TotalPrice())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

package domain

import (
	"github.com/shopspring/decimal"
)

// ProductSummary is the product shape embedded in cart and order lines.
type ProductSummary struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

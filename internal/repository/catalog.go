package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func (r *Repository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) GetUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT unit_price FROM products WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrProductNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query unit price: %w", err)
	}
	return price, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func (r *Repository) CreateCart(ctx context.Context, cartID string, createdAt time.Time) (*domain.Cart, error) {
	query := `INSERT INTO carts (id, created_at) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, cartID, createdAt); err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return &domain.Cart{ID: cartID, Items: []domain.CartItem{}, CreatedAt: createdAt}, nil
}

func (r *Repository) CartExists(ctx context.Context, cartID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cart exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart := domain.Cart{ID: cartID}
	err := r.db.QueryRowContext(ctx, `SELECT created_at FROM carts WHERE id = $1`, cartID).Scan(&cart.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	items, err := queryCartItems(ctx, r.db, cartID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}

// AddItem increments the quantity of an existing (cart, product) line or creates it.
func (r *Repository) AddItem(ctx context.Context, cartID string, productID int64, quantity int) (*domain.CartItem, error) {
	query := `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
	          ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
	          RETURNING id`

	var itemID int64
	err := r.db.QueryRowContext(ctx, query, cartID, productID, quantity).Scan(&itemID)
	if err != nil {
		if isForeignKeyViolation(err) || isSQLiteForeignKeyViolation(err) {
			return nil, domain.ErrUnknownProduct
		}
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return r.getCartItem(ctx, cartID, itemID)
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int) (*domain.CartItem, error) {
	query := `UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3`

	result, err := r.db.ExecContext(ctx, query, quantity, itemID, cartID)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update cart item rows affected: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrItemNotFound
	}
	return r.getCartItem(ctx, cartID, itemID)
}

func (r *Repository) RemoveItem(ctx context.Context, cartID string, itemID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteCart(ctx context.Context, cartID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return deleteCart(ctx, tx, cartID)
	})
}

func (r *Repository) getCartItem(ctx context.Context, cartID string, itemID int64) (*domain.CartItem, error) {
	query := `SELECT ci.id, ci.quantity, p.id, p.title, p.unit_price
	          FROM cart_items ci JOIN products p ON p.id = ci.product_id
	          WHERE ci.id = $1 AND ci.cart_id = $2`

	item := domain.CartItem{CartID: cartID}
	err := r.db.QueryRowContext(ctx, query, itemID, cartID).Scan(
		&item.ID,
		&item.Quantity,
		&item.Product.ID,
		&item.Product.Title,
		&item.Product.UnitPrice,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return &item, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryCartItems reads the cart lines with the products' current prices.
func queryCartItems(ctx context.Context, q querier, cartID string) ([]domain.CartItem, error) {
	query := `SELECT ci.id, ci.quantity, p.id, p.title, p.unit_price
	          FROM cart_items ci JOIN products p ON p.id = ci.product_id
	          WHERE ci.cart_id = $1 ORDER BY ci.id`

	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item := domain.CartItem{CartID: cartID}
		if err := rows.Scan(
			&item.ID,
			&item.Quantity,
			&item.Product.ID,
			&item.Product.Title,
			&item.Product.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

// deleteCart removes the cart and its lines. A missing cart row is ErrCartNotFound.
func deleteCart(ctx context.Context, q querier, cartID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func isSQLiteForeignKeyViolation(err error) bool {
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

func (r *Repository) GetOrCreateCustomer(ctx context.Context, userID string) (*domain.Customer, error) {
	return upsertCustomer(ctx, r.db, userID)
}

// PlaceOrder converts the cart into an order in one transaction: the customer upsert,
// the order and its price snapshot, the cart deletion and the order.placed outbox event
// either all commit or none do.
func (r *Repository) PlaceOrder(ctx context.Context, cartID, userID string, placedAt time.Time) (*domain.Order, error) {
	var order *domain.Order

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := upsertCustomer(ctx, tx, userID)
		if err != nil {
			return err
		}

		o := &domain.Order{
			CustomerID:    customer.ID,
			PlacedAt:      placedAt.UTC(),
			PaymentStatus: domain.PaymentStatusPending,
		}
		insertOrder := `INSERT INTO orders (customer_id, placed_at, payment_status) VALUES ($1, $2, $3) RETURNING id`
		if err := tx.QueryRowContext(ctx, insertOrder, o.CustomerID, o.PlacedAt, o.PaymentStatus).Scan(&o.ID); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		snapshot := `INSERT INTO order_items (order_id, product_id, unit_price, quantity)
		             SELECT CAST($1 AS BIGINT), ci.product_id, p.unit_price, ci.quantity
		             FROM cart_items ci JOIN products p ON p.id = ci.product_id
		             WHERE ci.cart_id = $2
		             ORDER BY ci.id`
		result, err := tx.ExecContext(ctx, snapshot, o.ID, cartID)
		if err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		copied, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert order items rows affected: %w", err)
		}
		if copied == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
				return fmt.Errorf("check cart exists: %w", err)
			}
			if !exists {
				return domain.ErrCartNotFound
			}
			return domain.ErrEmptyCart
		}

		if err := deleteCart(ctx, tx, cartID); err != nil {
			return err
		}

		o.Items, err = queryOrderItems(ctx, tx, o.ID)
		if err != nil {
			return err
		}

		if err := insertOutboxEvent(ctx, tx, strconv.FormatInt(o.ID, 10), domain.EventOrderPlaced,
			domain.NewOrderPlacedEvent(o, userID), o.PlacedAt); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	query := `SELECT id, customer_id, placed_at, payment_status FROM orders WHERE id = $1`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.PlacedAt,
		&order.PaymentStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	order.PlacedAt = order.PlacedAt.UTC()

	order.Items, err = queryOrderItems(ctx, r.db, order.ID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	query := `SELECT id, customer_id, placed_at, payment_status
	          FROM orders WHERE customer_id = $1 ORDER BY placed_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query orders by customer: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.PlacedAt,
			&order.PaymentStatus,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.PlacedAt = order.PlacedAt.UTC()
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	// rows are closed before item queries so a single-connection pool is not starved
	rows.Close()

	for _, order := range orders {
		order.Items, err = queryOrderItems(ctx, r.db, order.ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE orders SET payment_status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update payment status rows affected: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return r.GetOrder(ctx, orderID)
}

// upsertCustomer returns the user's customer, creating it with bronze membership on first use.
func upsertCustomer(ctx context.Context, q querier, userID string) (*domain.Customer, error) {
	query := `INSERT INTO customers (user_id) VALUES ($1)
	          ON CONFLICT (user_id) DO UPDATE SET user_id = excluded.user_id
	          RETURNING id, user_id, membership`

	var customer domain.Customer
	if err := q.QueryRowContext(ctx, query, userID).Scan(&customer.ID, &customer.UserID, &customer.Membership); err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return &customer, nil
}

func queryOrderItems(ctx context.Context, q querier, orderID int64) ([]domain.OrderItem, error) {
	query := `SELECT oi.id, oi.unit_price, oi.quantity, p.id, p.title, p.unit_price
	          FROM order_items oi JOIN products p ON p.id = oi.product_id
	          WHERE oi.order_id = $1 ORDER BY oi.id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		item := domain.OrderItem{OrderID: orderID}
		if err := rows.Scan(
			&item.ID,
			&item.UnitPrice,
			&item.Quantity,
			&item.Product.ID,
			&item.Product.Title,
			&item.Product.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func insertOutboxEvent(ctx context.Context, q querier, aggregateID, eventType string, event any, createdAt time.Time) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := q.ExecContext(ctx, query, aggregateID, eventType, string(payload), createdAt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

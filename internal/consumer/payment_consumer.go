package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

// PaymentStatusUpdater applies a payment outcome to an order.
type PaymentStatusUpdater interface {
	ApplyPaymentStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	initialRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Consumer reads payment events and updates the matching orders' payment status.
type Consumer struct {
	orders       PaymentStatusUpdater
	reader       messageReader
	retryBackoff time.Duration
}

func NewConsumer(orders PaymentStatusUpdater, topic string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{orders: orders, reader: reader, retryBackoff: initialRetryBackoff}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		slog.Error("error closing kafka reader", slog.Any("error", err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.ErrorContext(ctx, "error reading message", slog.Any("error", err))
		return
	}

	if !c.handleWithRetry(ctx, m) {
		return
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		slog.ErrorContext(ctx, "failed to commit message", slog.Int64("offset", m.Offset), slog.Any("error", err))
	}
}

// handleWithRetry keeps applying m until it succeeds, so a later commit never
// moves the group offset past an event that was not applied. It reports false
// when ctx ends first.
func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) bool {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, m.Value)
		if err == nil {
			return true
		}
		slog.ErrorContext(ctx, "failed to apply payment event",
			slog.Int64("offset", m.Offset),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", backoff),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

// handle returns an error only for failures worth retrying. Malformed events and
// events for unknown orders are logged and skipped.
func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var event domain.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		slog.WarnContext(ctx, "error parsing payment event", slog.Any("error", err))
		return nil
	}

	order, err := c.orders.ApplyPaymentStatus(ctx, event.OrderID, event.PaymentStatus)
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindValidation, domain.KindForbidden:
		slog.WarnContext(ctx, "skipping payment event",
			slog.Int64("order_id", event.OrderID),
			slog.String("payment_status", event.PaymentStatus.String()),
			slog.Any("error", err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply payment status for order %d: %w", event.OrderID, err)
	}

	slog.InfoContext(ctx, "payment status updated",
		slog.Int64("order_id", order.ID),
		slog.String("payment_status", order.PaymentStatus.String()))
	return nil
}

package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	r "github.com/fjod/storefront/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes committed outbox events to Kafka and marks them processed.
// Delivery is at-least-once: an event whose mark fails is published again on the next tick.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      r.OutboxRepository
	writer    messageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

func NewOutboxPoller(repo r.OutboxRepository, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(repo, w, time.Second)
}

func newOutboxPoller(repo r.OutboxRepository, w messageWriter, tick time.Duration) *OutboxPoller {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-outbox",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &OutboxPoller{
		eventTick: tick,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		breaker:   breaker,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch outbox events", slog.Any("error", err))
		return
	}

	for _, event := range events {
		_, errPublish := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.publishToKafka(ctx, event)
		})
		if errors.Is(errPublish, gobreaker.ErrOpenState) || errors.Is(errPublish, gobreaker.ErrTooManyRequests) {
			// broker is unhealthy; the rest of the batch waits for the next tick
			return
		}
		if errPublish != nil {
			slog.ErrorContext(ctx, "failed to publish outbox event",
				slog.Int64("event_id", event.ID), slog.Any("error", errPublish))
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			slog.ErrorContext(ctx, "failed to mark outbox event as processed",
				slog.Int64("event_id", event.ID), slog.Any("error", errMark))
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}

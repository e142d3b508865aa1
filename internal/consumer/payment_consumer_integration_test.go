//go:build integration

package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func TestConsumer_ReadsPaymentEvents(t *testing.T) {
	broker, cleanup := setupKafka(t)
	defer cleanup()

	const topic = "payment-events"
	writer := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		return writer.WriteMessages(ctx, kafkaGo.Message{
			Key:   []byte("1"),
			Value: []byte(`{"order_id":1,"payment_status":"complete"}`),
		}) == nil
	}, 30*time.Second, time.Second)

	updater := &mockUpdater{}
	c := NewConsumer(updater, topic, broker)
	defer c.Close()

	go c.Run(ctx)

	assert.Eventually(t, func() bool {
		updater.m.Lock()
		defer updater.m.Unlock()
		return updater.updates[1] == domain.PaymentStatusComplete
	}, 45*time.Second, 500*time.Millisecond)
}

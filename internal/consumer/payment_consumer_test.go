package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUpdater struct {
	m       sync.Mutex
	updates map[int64]domain.PaymentStatus
	calls   map[int64]int
	err     error
	// failures is how many calls per order fail with err before succeeding; zero fails forever.
	failures int
}

func (u *mockUpdater) ApplyPaymentStatus(_ context.Context, orderID int64, status domain.PaymentStatus) (*domain.Order, error) {
	u.m.Lock()
	defer u.m.Unlock()
	if u.calls == nil {
		u.calls = map[int64]int{}
	}
	u.calls[orderID]++
	if u.err != nil && (u.failures == 0 || u.calls[orderID] <= u.failures) {
		return nil, u.err
	}
	if !status.IsValid() {
		return nil, domain.ErrInvalidPaymentStatus
	}
	if orderID != 1 && orderID != 2 {
		return nil, domain.ErrOrderNotFound
	}
	if u.updates == nil {
		u.updates = map[int64]domain.PaymentStatus{}
	}
	u.updates[orderID] = status
	return &domain.Order{ID: orderID, PaymentStatus: status}, nil
}

type mockReader struct {
	messages  []kafka.Message
	committed []int64
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *mockReader) Close() error { return nil }

func TestHandle_AppliesStatus(t *testing.T) {
	u := &mockUpdater{}
	c := &Consumer{orders: u}

	err := c.handle(context.Background(), []byte(`{"order_id":1,"payment_status":"complete"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusComplete, u.updates[1])
}

func TestHandle_SkipsBadEvents(t *testing.T) {
	u := &mockUpdater{}
	c := &Consumer{orders: u}
	ctx := context.Background()

	assert.NoError(t, c.handle(ctx, []byte(`not json`)))
	assert.NoError(t, c.handle(ctx, []byte(`{"order_id":404,"payment_status":"complete"}`)))
	assert.NoError(t, c.handle(ctx, []byte(`{"order_id":1,"payment_status":"refunded"}`)))
	assert.Empty(t, u.updates)
}

func TestHandle_StorageFailureIsReturned(t *testing.T) {
	u := &mockUpdater{err: errors.New("db down")}
	c := &Consumer{orders: u}

	err := c.handle(context.Background(), []byte(`{"order_id":1,"payment_status":"failed"}`))
	assert.Error(t, err)
}

func TestProcessMessage_CommitsHandledMessages(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		{Offset: 7, Value: []byte(`{"order_id":1,"payment_status":"complete"}`)},
		{Offset: 8, Value: []byte(`{"order_id":404,"payment_status":"complete"}`)},
	}}
	c := &Consumer{orders: &mockUpdater{}, reader: reader}

	c.processMessage(context.Background())
	c.processMessage(context.Background())

	assert.Equal(t, []int64{7, 8}, reader.committed)
}

func TestProcessMessage_StorageFailureNotCommitted(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		{Offset: 3, Value: []byte(`{"order_id":1,"payment_status":"complete"}`)},
	}}
	u := &mockUpdater{err: errors.New("db down")}
	c := &Consumer{orders: u, reader: reader, retryBackoff: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c.processMessage(ctx)

	assert.Empty(t, reader.committed)
	assert.Greater(t, u.calls[1], 1)
}

func TestProcessMessage_RetriesFailedMessageBeforeNext(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		{Offset: 10, Value: []byte(`{"order_id":1,"payment_status":"complete"}`)},
		{Offset: 11, Value: []byte(`{"order_id":2,"payment_status":"complete"}`)},
	}}
	u := &mockUpdater{err: errors.New("db down"), failures: 1}
	c := &Consumer{orders: u, reader: reader, retryBackoff: time.Millisecond}

	c.processMessage(context.Background())
	c.processMessage(context.Background())

	assert.Equal(t, map[int64]int{1: 2, 2: 2}, u.calls)
	assert.Equal(t, domain.PaymentStatusComplete, u.updates[1])
	assert.Equal(t, domain.PaymentStatusComplete, u.updates[2])
	assert.Equal(t, []int64{10, 11}, reader.committed)
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	reader := &mockReader{}
	c := &Consumer{orders: &mockUpdater{}, reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Run(ctx)
}

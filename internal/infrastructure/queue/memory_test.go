package queue

import (
	"context"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_AckRemovesMessage(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.Publish(ctx, []byte("a")))
	d, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), d.Body())
	assert.Equal(t, 1, q.InFlight())

	require.NoError(t, d.Ack(ctx))
	assert.Equal(t, 0, q.InFlight())
	assert.Equal(t, 0, q.Ready())
}

func TestMemoryQueue_NackRedelivers(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	require.NoError(t, q.Publish(ctx, []byte("a")))

	first, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Nack(ctx))

	second, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, 2, second.(*memoryDelivery).Attempt())
}

func TestMemoryQueue_SettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	require.NoError(t, q.Publish(ctx, []byte("a")))

	d, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Ack(ctx))
	require.NoError(t, d.Nack(ctx))

	assert.Equal(t, 0, q.Ready())
}

func TestMemoryQueue_DeadLettersAfterMaxDeliveries(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(WithMaxDeliveries(2))
	require.NoError(t, q.Publish(ctx, []byte("poison")))

	for i := 0; i < 2; i++ {
		d, err := q.Receive(ctx)
		require.NoError(t, err)
		require.NoError(t, d.Nack(ctx))
	}

	assert.Equal(t, 0, q.Ready())
	assert.Equal(t, [][]byte{[]byte("poison")}, q.DeadLetters())
}

func TestMemoryQueue_ReceiveHonoursContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueue_CloseUnblocksReceiver(t *testing.T) {
	q := NewMemoryQueue()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("receiver was not woken by Close")
	}
	assert.ErrorIs(t, q.Publish(context.Background(), []byte("x")), ErrClosed)
}

func TestMemoryQueue_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	for _, b := range []string{"1", "2", "3"} {
		require.NoError(t, q.Publish(ctx, []byte(b)))
	}
	for _, want := range []string{"1", "2", "3"} {
		d, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(d.Body()))
		require.NoError(t, d.Ack(ctx))
	}
}

func TestFactory_CreatesMemoryTransport(t *testing.T) {
	f := NewFactory(config.QueueConfig{Driver: DriverMemory}, config.RedisConfig{})
	tr, err := f.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, tr.Publisher.Publish(context.Background(), []byte("x")))
	d, err := tr.Source.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", string(d.Body()))

	require.NoError(t, tr.Close())
	_, err = tr.Source.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFactory_RejectsUnknownDriver(t *testing.T) {
	_, err := NewFactory(config.QueueConfig{Driver: "kafka"}, config.RedisConfig{}).Create(context.Background())
	assert.Error(t, err)
}

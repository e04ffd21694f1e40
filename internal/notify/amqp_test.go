package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/slotsale/internal/domain"
)

type fakeChannel struct {
	mu         sync.Mutex
	publishErr error
	published  []amqp.Publishing
	closers    []chan *amqp.Error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp.Table) error {
	return nil
}

func (c *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return amqp.ErrClosed
	}
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, ch)
	return ch
}

// brokerClose simulates the server closing the channel.
func (c *fakeChannel) brokerClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for _, ch := range c.closers {
		ch <- &amqp.Error{Code: amqp.PreconditionFailed, Reason: "channel closed by broker"}
		close(ch)
	}
	c.closers = nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

type fakeConn struct {
	channels []*fakeChannel
	closed   bool
}

func (c *fakeConn) channel() (publisher, error) {
	ch := &fakeChannel{}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) IsClosed() bool { return c.closed }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newFakeSink(t *testing.T) (*AMQPSink, *fakeConn, *int) {
	t.Helper()

	conn := &fakeConn{}
	dials := 0
	sink, err := newAMQPSink(
		AMQPConfig{URL: "amqp://fake"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(string) (connection, error) {
			dials++
			return conn, nil
		},
	)
	require.NoError(t, err)

	return sink, conn, &dials
}

func confirmedEvent() domain.BookingEvent {
	return domain.BookingEvent{
		Type:    domain.EventBookingConfirmed,
		Booking: domain.Booking{ID: uuid.New(), OrderID: "ORD-1"},
	}
}

func TestAMQPSink_Publishes(t *testing.T) {
	sink, conn, _ := newFakeSink(t)

	ev := confirmedEvent()
	require.NoError(t, sink.Notify(context.Background(), ev))

	require.Len(t, conn.channels, 1)
	msgs := conn.channels[0].published
	require.Len(t, msgs, 1)
	assert.Equal(t, ev.Booking.ID.String(), msgs[0].MessageId)
	assert.Equal(t, amqp.Persistent, msgs[0].DeliveryMode)
	assert.Equal(t, domain.EventBookingConfirmed, msgs[0].Type)
}

func TestAMQPSink_ReopensChannelClosedByBroker(t *testing.T) {
	sink, conn, dials := newFakeSink(t)
	ctx := context.Background()

	conn.channels[0].brokerClose()

	require.NoError(t, sink.Notify(ctx, confirmedEvent()))
	require.Len(t, conn.channels, 2)
	assert.Len(t, conn.channels[1].published, 1)
	assert.Equal(t, 1, *dials, "connection is reused")
}

func TestAMQPSink_ReopensChannelAfterPublishError(t *testing.T) {
	sink, conn, _ := newFakeSink(t)
	ctx := context.Background()

	conn.channels[0].publishErr = amqp.ErrClosed

	require.Error(t, sink.Notify(ctx, confirmedEvent()))
	require.NoError(t, sink.Notify(ctx, confirmedEvent()))

	require.Len(t, conn.channels, 2)
	assert.Len(t, conn.channels[1].published, 1)
}

func TestAMQPSink_RedialsClosedConnection(t *testing.T) {
	var conns []*fakeConn
	sink, err := newAMQPSink(
		AMQPConfig{URL: "amqp://fake"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(string) (connection, error) {
			c := &fakeConn{}
			conns = append(conns, c)
			return c, nil
		},
	)
	require.NoError(t, err)

	conns[0].closed = true

	require.NoError(t, sink.Notify(context.Background(), confirmedEvent()))
	require.Len(t, conns, 2)
	require.Len(t, conns[1].channels, 1)
	assert.Len(t, conns[1].channels[0].published, 1)

	require.NoError(t, sink.Close())
	assert.True(t, conns[1].closed)
}

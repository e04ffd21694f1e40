package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/slotsale/internal/domain"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Notify(context.Background(), domain.BookingEvent{
		Type: domain.EventBookingConfirmed,
		Booking: domain.Booking{
			ID:          uuid.New(),
			OrderID:     "ORD-1",
			SlotNumbers: []int{4, 5},
			Buyer:       domain.BuyerContact{Email: "asha@example.com"},
		},
		Package: domain.Package{ID: "ANNUAL"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "order_id=ORD-1")
	assert.Contains(t, out, "package=ANNUAL")
	assert.Contains(t, out, "buyer_email=asha@example.com")
}

func TestNewAMQPSink_RequiresURL(t *testing.T) {
	_, err := NewAMQPSink(AMQPConfig{}, slog.Default())
	require.Error(t, err)
}

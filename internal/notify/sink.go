package notify

import (
	"context"
	"log/slog"

	"github.com/kirinyoku/slotsale/internal/domain"
)

// Sink receives confirmed bookings. Delivery is at least once, so
// implementations must tolerate repeats of the same booking id.
type Sink interface {
	Notify(ctx context.Context, ev domain.BookingEvent) error
}

// LogSink writes events to the log. Used when no broker is configured.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, ev domain.BookingEvent) error {
	s.log.InfoContext(ctx, "booking notification",
		slog.String("type", ev.Type),
		slog.String("booking_id", ev.Booking.ID.String()),
		slog.String("order_id", ev.Booking.OrderID),
		slog.Any("slots", ev.Booking.SlotNumbers),
		slog.String("package", ev.Package.ID),
		slog.String("buyer_email", ev.Booking.Buyer.Email),
	)
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/repository"
	"github.com/kirinyoku/slotsale/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(orderID, paymentRef string, slots []int) *domain.Booking {
	return &domain.Booking{
		ID:               uuid.New(),
		OrderID:          orderID,
		SlotNumbers:      slots,
		PackageID:        "SINGLE",
		UnitsGranted:     3,
		AmountPaid:       600,
		Currency:         "INR",
		GatewayOrderID:   "order_gw_1",
		PaymentReference: paymentRef,
		Buyer: domain.BuyerContact{
			Name:  "Asha",
			Phone: "9999999999",
			Email: "asha@example.com",
			City:  "Pune",
		},
		Status:    domain.BookingSuccess,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookingRepo(t *testing.T) {
	pool := testutil.NewTestPool(t)
	store := NewStore(pool)

	t.Run("Insert and read back", func(t *testing.T) {
		testutil.ResetPool(t, pool, 5)
		ctx := context.Background()

		b := newBooking("ORD-1", "pay_1", []int{3})
		require.NoError(t, store.Bookings().Insert(ctx, b))

		got, err := store.Bookings().GetByOrderID(ctx, "ORD-1")
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, []int{3}, got.SlotNumbers)
		assert.Equal(t, b.Buyer, got.Buyer)
		assert.Equal(t, domain.BookingSuccess, got.Status)
	})

	t.Run("duplicate order id or payment conflicts", func(t *testing.T) {
		testutil.ResetPool(t, pool, 5)
		ctx := context.Background()

		require.NoError(t, store.Bookings().Insert(ctx, newBooking("ORD-1", "pay_1", []int{1})))

		err := store.Bookings().Insert(ctx, newBooking("ORD-1", "pay_2", []int{2}))
		require.ErrorIs(t, err, repository.ErrConflict)

		err = store.Bookings().Insert(ctx, newBooking("ORD-2", "pay_1", []int{2}))
		require.ErrorIs(t, err, repository.ErrConflict)

		assert.Equal(t, 1, testutil.CountBookings(t, pool))
	})

	t.Run("FindExisting matches either key", func(t *testing.T) {
		testutil.ResetPool(t, pool, 5)
		ctx := context.Background()

		b := newBooking("ORD-1", "pay_1", []int{1})
		require.NoError(t, store.Bookings().Insert(ctx, b))

		got, err := store.Bookings().FindExisting(ctx, "ORD-1", "pay_x")
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)

		got, err = store.Bookings().FindExisting(ctx, "ORD-x", "pay_1")
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)

		_, err = store.Bookings().FindExisting(ctx, "ORD-x", "pay_x")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("incidents", func(t *testing.T) {
		testutil.ResetPool(t, pool, 5)
		ctx := context.Background()

		inc := &domain.PaymentIncident{
			ID:               uuid.New(),
			OrderID:          "ORD-9",
			GatewayOrderID:   "order_gw_9",
			PaymentReference: "pay_9",
			SlotNumbers:      []int{4, 5},
			PackageID:        "ANNUAL",
			Buyer:            domain.BuyerContact{Name: "Ravi", Email: "ravi@example.com"},
			Reason:           "reservation lost",
			CreatedAt:        time.Now().UTC(),
		}
		require.NoError(t, store.Bookings().RecordIncident(ctx, inc))

		list, err := store.Bookings().ListIncidents(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, inc.Buyer, list[0].Buyer)
		assert.Equal(t, []int{4, 5}, list[0].SlotNumbers)
	})
}

func TestOutboxRepo(t *testing.T) {
	pool := testutil.NewTestPool(t)
	store := NewStore(pool)

	t.Run("Drain delivers and records failures", func(t *testing.T) {
		testutil.ResetPool(t, pool, 5)
		ctx := context.Background()

		ok := newBooking("ORD-1", "pay_1", []int{1})
		bad := newBooking("ORD-2", "pay_2", []int{2})
		for _, b := range []*domain.Booking{ok, bad} {
			require.NoError(t, store.Bookings().Insert(ctx, b))
			require.NoError(t, store.Outbox().Enqueue(ctx, b.ID, domain.BookingEvent{
				Type:    domain.EventBookingConfirmed,
				Booking: *b,
			}))
		}

		var seen []string
		sent, err := store.Outbox().Drain(ctx, 10, func(_ context.Context, m domain.OutboxMessage) error {
			var ev domain.BookingEvent
			require.NoError(t, json.Unmarshal(m.Payload, &ev))
			seen = append(seen, ev.Booking.OrderID)
			if m.BookingID == bad.ID {
				return errors.New("broker down")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.ElementsMatch(t, []string{"ORD-1", "ORD-2"}, seen)

		pending, err := store.Outbox().Pending(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, pending)

		sent, err = store.Outbox().Drain(ctx, 10, func(context.Context, domain.OutboxMessage) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		pending, err = store.Outbox().Pending(ctx)
		require.NoError(t, err)
		assert.Zero(t, pending)
	})
}

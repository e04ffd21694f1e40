package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/slotsale/internal/domain"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	"github.com/kirinyoku/slotsale/internal/testutil"
)

func TestService(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ResetPool(t, pool, 5)

	store := postgresrepo.NewStore(pool)
	svc := New(store, nil, Config{MaxPage: 2})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Slots().Reserve(ctx, []int{2}, now, uuid.New()))

	slots, err := svc.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 5)
	assert.Equal(t, 1, slots[0].Number)
	assert.Equal(t, domain.SlotReserved, slots[1].Status)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotCounts{Available: 4, Reserved: 1, Total: 5}, *counts)

	_, err = svc.GetSlot(ctx, 99)
	require.ErrorIs(t, err, ErrSlotNotFound)

	_, err = svc.GetBooking(ctx, "missing")
	require.ErrorIs(t, err, ErrBookingNotFound)

	for i, ref := range []string{"pay_a", "pay_b", "pay_c"} {
		require.NoError(t, store.Bookings().Insert(ctx, &domain.Booking{
			ID:               uuid.New(),
			OrderID:          "ORD-" + ref,
			SlotNumbers:      []int{i + 3},
			PackageID:        "SINGLE",
			UnitsGranted:     3,
			AmountPaid:       600,
			Currency:         "INR",
			GatewayOrderID:   "order_gw",
			PaymentReference: ref,
			Buyer:            domain.BuyerContact{Name: "A", Phone: "1", Email: "a@example.com"},
			Status:           domain.BookingSuccess,
			CreatedAt:        now.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := svc.ListBookings(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD-pay_c", page[0].OrderID)

	b, err := svc.GetBooking(ctx, "ORD-pay_a")
	require.NoError(t, err)
	assert.Equal(t, "pay_a", b.PaymentReference)

	incidents, err := svc.ListIncidents(ctx, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

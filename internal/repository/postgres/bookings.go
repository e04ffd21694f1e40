package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotsale/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, order_id, slot_numbers, package_id, units_granted,
	amount_paid, currency, gateway_order_id, payment_reference,
	buyer_name, buyer_phone, buyer_email, buyer_house_no, buyer_street,
	buyer_city, buyer_pincode, status, created_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var status string

	if err := row.Scan(
		&b.ID,
		&b.OrderID,
		&b.SlotNumbers,
		&b.PackageID,
		&b.UnitsGranted,
		&b.AmountPaid,
		&b.Currency,
		&b.GatewayOrderID,
		&b.PaymentReference,
		&b.Buyer.Name,
		&b.Buyer.Phone,
		&b.Buyer.Email,
		&b.Buyer.HouseNo,
		&b.Buyer.Street,
		&b.Buyer.City,
		&b.Buyer.Pincode,
		&status,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)

	return &b, nil
}

// Insert stores a booking record. CreatedAt is taken from b.
//
// Returns:
//   - error: repository.ErrConflict if order_id or payment_reference is
//     already recorded.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Insert"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID,
		b.OrderID,
		b.SlotNumbers,
		b.PackageID,
		b.UnitsGranted,
		b.AmountPaid,
		b.Currency,
		b.GatewayOrderID,
		b.PaymentReference,
		b.Buyer.Name,
		b.Buyer.Phone,
		b.Buyer.Email,
		b.Buyer.HouseNo,
		b.Buyer.Street,
		b.Buyer.City,
		b.Buyer.Pincode,
		string(b.Status),
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// GetByOrderID retrieves a booking by its client order id.
//
// Returns:
//   - error: repository.ErrNotFound if no booking has that order id.
func (r *BookingRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetByOrderID"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE order_id = $1`,
		orderID,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// FindExisting looks a booking up by order id or payment reference,
// preferring the order id match.
//
// Returns:
//   - error: repository.ErrNotFound if neither is recorded.
func (r *BookingRepo) FindExisting(ctx context.Context, orderID, paymentRef string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.FindExisting"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE order_id = $1 OR payment_reference = $2
		 ORDER BY (order_id = $1) DESC
		 LIMIT 1`,
		orderID, paymentRef,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// List returns bookings newest first.
func (r *BookingRepo) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 ORDER BY created_at DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// RecordIncident stores a paid-but-unbooked outcome for reconciliation.
func (r *BookingRepo) RecordIncident(ctx context.Context, inc *domain.PaymentIncident) error {
	const op = "postgres.BookingRepo.RecordIncident"

	slots := inc.SlotNumbers
	if slots == nil {
		slots = []int{}
	}

	_, err := r.handle().Exec(ctx,
		`INSERT INTO payment_incidents (
			id, order_id, gateway_order_id, payment_reference,
			slot_numbers, package_id, buyer, reason, created_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inc.ID,
		inc.OrderID,
		inc.GatewayOrderID,
		inc.PaymentReference,
		slots,
		inc.PackageID,
		inc.Buyer,
		inc.Reason,
		inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// ListIncidents returns payment incidents newest first.
func (r *BookingRepo) ListIncidents(ctx context.Context, limit, offset int) ([]domain.PaymentIncident, error) {
	const op = "postgres.BookingRepo.ListIncidents"

	rows, err := r.handle().Query(ctx,
		`SELECT id, order_id, gateway_order_id, payment_reference,
			slot_numbers, package_id, buyer, reason, created_at
		 FROM payment_incidents
		 ORDER BY created_at DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.PaymentIncident{}
	for rows.Next() {
		var inc domain.PaymentIncident
		if err := rows.Scan(
			&inc.ID,
			&inc.OrderID,
			&inc.GatewayOrderID,
			&inc.PaymentReference,
			&inc.SlotNumbers,
			&inc.PackageID,
			&inc.Buyer,
			&inc.Reason,
			&inc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

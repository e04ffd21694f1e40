package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/repository"
)

type SlotRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SlotRepo) With(db DB) *SlotRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SlotRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// inTx runs fn on the bound transaction, or opens one so that a failed
// count check always rolls the whole statement back.
func (r *SlotRepo) inTx(ctx context.Context, fn func(ctx context.Context, db DB) error) error {
	if r.db != nil {
		return fn(ctx, r.db)
	}
	return runTx(ctx, r.pool, ReadCommitted(), fn)
}

// lockRows takes row locks on numbers in ascending order, so overlapping
// transitions queue behind each other instead of deadlocking.
func lockRows(ctx context.Context, db DB, numbers []int) error {
	rows, err := db.Query(ctx,
		`SELECT number FROM slots
		 WHERE number = ANY($1)
		 ORDER BY number
		 FOR UPDATE`,
		numbers,
	)
	if err != nil {
		return translateDBErr(err)
	}

	rows.Close()

	return translateDBErr(rows.Err())
}

// SeedPool creates slots 1..size. Existing rows are left untouched.
//
// Returns:
//   - int64: the number of slots created.
//   - error: if the insert fails.
func (r *SlotRepo) SeedPool(ctx context.Context, size int) (int64, error) {
	const op = "postgres.SlotRepo.SeedPool"

	tag, err := r.handle().Exec(ctx,
		`INSERT INTO slots (number, status)
		 SELECT n, 'available' FROM generate_series(1, $1) AS n
		 ON CONFLICT (number) DO NOTHING`,
		size,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// List returns every slot ordered by number.
func (r *SlotRepo) List(ctx context.Context) ([]domain.Slot, error) {
	const op = "postgres.SlotRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT number, status, reserved_at, booked_at
		 FROM slots
		 ORDER BY number`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Slot
	for rows.Next() {
		var s domain.Slot
		var status string

		if err := rows.Scan(&s.Number, &status, &s.ReservedAt, &s.BookedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		s.Status = domain.SlotStatus(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get returns one slot.
//
// Returns:
//   - error: repository.ErrNotFound if the slot does not exist.
func (r *SlotRepo) Get(ctx context.Context, number int) (*domain.Slot, error) {
	const op = "postgres.SlotRepo.Get"

	var s domain.Slot
	var status string

	err := r.handle().QueryRow(ctx,
		`SELECT number, status, reserved_at, booked_at
		 FROM slots WHERE number = $1`,
		number,
	).Scan(&s.Number, &status, &s.ReservedAt, &s.BookedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	s.Status = domain.SlotStatus(status)

	return &s, nil
}

// CountsByStatus counts slots per status.
func (r *SlotRepo) CountsByStatus(ctx context.Context) (*domain.SlotCounts, error) {
	const op = "postgres.SlotRepo.CountsByStatus"

	var c domain.SlotCounts
	err := r.handle().QueryRow(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'available' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'reserved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'booked' THEN 1 ELSE 0 END), 0)
		 FROM slots`,
	).Scan(&c.Available, &c.Reserved, &c.Booked)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	c.Total = c.Available + c.Reserved + c.Booked

	return &c, nil
}

// Reserve moves every slot in numbers from available to reserved, stamping
// reserved_at and holdID. Either all of them move or none do.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - numbers: distinct slot numbers to reserve.
//   - at: reservation timestamp.
//   - holdID: identifies this claim until the slots are booked or released.
//
// Returns:
//   - error: repository.ErrSlotsUnavailable if any slot is not available.
func (r *SlotRepo) Reserve(ctx context.Context, numbers []int, at time.Time, holdID uuid.UUID) error {
	const op = "postgres.SlotRepo.Reserve"

	err := r.inTx(ctx, func(ctx context.Context, db DB) error {
		if err := lockRows(ctx, db, numbers); err != nil {
			return err
		}

		tag, err := db.Exec(ctx,
			`UPDATE slots
			 SET status = 'reserved', reserved_at = $2, hold_id = $3
			 WHERE number = ANY($1)
				AND status = 'available'`,
			numbers, at, holdID,
		)
		if err != nil {
			return translateDBErr(err)
		}

		if int(tag.RowsAffected()) != len(numbers) {
			return repository.ErrSlotsUnavailable
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Book moves every slot in numbers from reserved to booked. Either all of
// them move or none do. A non-nil holdID additionally requires every slot
// to still carry that hold.
//
// Returns:
//   - error: repository.ErrReservationLost if any slot is no longer reserved
//     or was reserved again under another hold.
func (r *SlotRepo) Book(ctx context.Context, numbers []int, at time.Time, holdID uuid.UUID) error {
	const op = "postgres.SlotRepo.Book"

	var hold *uuid.UUID
	if holdID != uuid.Nil {
		hold = &holdID
	}

	err := r.inTx(ctx, func(ctx context.Context, db DB) error {
		if err := lockRows(ctx, db, numbers); err != nil {
			return err
		}

		tag, err := db.Exec(ctx,
			`UPDATE slots
			 SET status = 'booked', booked_at = $2, reserved_at = NULL, hold_id = NULL
			 WHERE number = ANY($1)
				AND status = 'reserved'
				AND ($3::uuid IS NULL OR hold_id = $3::uuid)`,
			numbers, at, hold,
		)
		if err != nil {
			return translateDBErr(err)
		}

		if int(tag.RowsAffected()) != len(numbers) {
			return repository.ErrReservationLost
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ExpireReservations releases reservations stamped before cutoff.
//
// Returns:
//   - []int: the released slot numbers.
//   - error: if the update fails.
func (r *SlotRepo) ExpireReservations(ctx context.Context, cutoff time.Time) ([]int, error) {
	const op = "postgres.SlotRepo.ExpireReservations"

	rows, err := r.handle().Query(ctx,
		`WITH stale AS (
			SELECT number FROM slots
			WHERE status = 'reserved' AND reserved_at < $1
			ORDER BY number
			FOR UPDATE
		 )
		 UPDATE slots s
		 SET status = 'available', reserved_at = NULL, hold_id = NULL
		 FROM stale
		 WHERE s.number = stale.number
		 RETURNING s.number`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var released []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		released = append(released, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	slices.Sort(released)

	return released, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotsale/internal/domain"
)

type OutboxRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OutboxRepo) With(db DB) *OutboxRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OutboxRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Enqueue stores payload as a pending notification for bookingID. Call it
// on the booking's transaction.
func (r *OutboxRepo) Enqueue(ctx context.Context, bookingID uuid.UUID, payload any) error {
	const op = "postgres.OutboxRepo.Enqueue"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO notification_outbox (id, booking_id, payload)
		 VALUES ($1, $2, $3)`,
		uuid.New(), bookingID, body,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Drain claims up to limit pending messages, hands each to deliver and
// records the outcome. Rows claimed by another drainer are skipped.
//
// Returns:
//   - int: the number of messages delivered.
//   - error: if claiming or recording fails. Delivery errors are stored
//     on the row, not returned.
func (r *OutboxRepo) Drain(
	ctx context.Context,
	limit int,
	deliver func(ctx context.Context, msg domain.OutboxMessage) error,
) (int, error) {
	const op = "postgres.OutboxRepo.Drain"

	var sent int

	err := runTx(ctx, r.pool, &pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}, func(ctx context.Context, tx DB) error {
		rows, err := tx.Query(ctx,
			`SELECT id, booking_id, payload, attempts, created_at
			 FROM notification_outbox
			 WHERE sent_at IS NULL
			 ORDER BY attempts, created_at
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED`,
			limit,
		)
		if err != nil {
			return translateDBErr(err)
		}

		msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutboxMessage, error) {
			var m domain.OutboxMessage
			err := row.Scan(&m.ID, &m.BookingID, &m.Payload, &m.Attempts, &m.CreatedAt)
			return m, err
		})
		if err != nil {
			return translateDBErr(err)
		}

		for _, m := range msgs {
			if derr := deliver(ctx, m); derr != nil {
				if _, err := tx.Exec(ctx,
					`UPDATE notification_outbox
					 SET attempts = attempts + 1, last_error = $2
					 WHERE id = $1`,
					m.ID, derr.Error(),
				); err != nil {
					return translateDBErr(err)
				}
				continue
			}

			if _, err := tx.Exec(ctx,
				`UPDATE notification_outbox
				 SET attempts = attempts + 1, last_error = NULL, sent_at = $2
				 WHERE id = $1`,
				m.ID, time.Now().UTC(),
			); err != nil {
				return translateDBErr(err)
			}
			sent++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return sent, nil
}

// Pending counts undelivered messages.
func (r *OutboxRepo) Pending(ctx context.Context) (int64, error) {
	const op = "postgres.OutboxRepo.Pending"

	var n int64
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_outbox WHERE sent_at IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}

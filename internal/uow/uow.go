package uow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/kirinyoku/slotsale/internal/repository/postgres"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store    *postgres.Store
	attempts int
	backoff  time.Duration
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{
		store:    store,
		attempts: 3,
		backoff:  20 * time.Millisecond,
	}
}

// DoWithOpts runs fn inside a transaction with the given options; nil opts
// means serializable. After a successful commit it executes all
// after-commit hooks. A serialization failure or deadlock reruns fn from
// scratch, so fn must not keep state between attempts. Hooks from failed
// attempts are discarded.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 1; ; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !postgres.IsRetryable(err) || attempt >= u.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * u.backoff):
		}
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

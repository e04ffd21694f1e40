package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/slotsale/internal/clock"
	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/repository"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/uow"
)

type Config struct {
	Lease         time.Duration
	SweepInterval time.Duration
}

type Service struct {
	store   *postgresrepo.Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.SlotsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	uow     *uow.UoW
	clock   clock.Clock
	log     *slog.Logger
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SlotsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clk clock.Clock,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Lease <= 0 {
		cfg.Lease = 5 * time.Minute
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	if clk == nil {
		clk = clock.NewSystem()
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		uow:     uow.NewUoW(store),
		clock:   clk,
		log:     log,
		cfg:     cfg,
	}
}

// Reserve places a timed hold on every requested slot, or on none.
//
// Parameters:
//   - ctx: request-scoped context.
//   - slotNumbers: the slots to hold; order and duplicates are checked.
//   - rlKey: client key for rate limiting; empty disables the check.
//
// Returns:
//   - domain.Hold: the hold ID to pass back on confirmation and when it lapses.
//   - error: reservation.ErrInvalidSlotNumbers for empty, non-positive or repeated numbers.
//   - error: reservation.ErrSlotsUnavailable if any slot is not available.
//   - error: domain.ErrRateLimited if the client exceeded its quota.
func (s *Service) Reserve(ctx context.Context, slotNumbers []int, rlKey string) (domain.Hold, error) {
	const op = "service.reservation.Reserve"

	numbers, err := domain.NormalizeSlotNumbers(slotNumbers)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.allow(ctx, rlKey); err != nil {
		return domain.Hold{}, fmt.Errorf("%s:%w", op, err)
	}

	now := s.clock.Now()
	hold := domain.Hold{
		ID:          uuid.New(),
		SlotNumbers: numbers,
		ExpiresAt:   now.Add(s.cfg.Lease),
	}

	err = s.uow.DoWithOpts(ctx, postgresrepo.ReadCommitted(), func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Slots().With(tx).Reserve(ctx, numbers, now, hold.ID); err != nil {
			if errors.Is(err, repository.ErrSlotsUnavailable) {
				return ErrSlotsUnavailable
			}

			return err
		}

		after(func(ctx context.Context) {
			s.changed(ctx, "reserved", domain.SlotReserved, numbers)
		})

		return nil
	})
	if err != nil {
		return domain.Hold{}, fmt.Errorf("%s:%w", op, err)
	}

	return hold, nil
}

// allow applies the per-client quota. A limiter outage lets the request
// through; the slot update itself is the only guard that matters.
func (s *Service) allow(ctx context.Context, rlKey string) error {
	if s.limiter == nil || rlKey == "" {
		return nil
	}

	d, err := s.limiter.Allow(ctx, rlKey)
	if err != nil {
		s.log.Warn("rate limiter unavailable, allowing request",
			slog.String("key", rlKey),
			slog.Any("err", err),
		)
		return nil
	}

	if !d.Allowed {
		return domain.RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}

// Sweep releases every reservation older than the lease.
//
// Returns:
//   - []int: the slots returned to available, ascending.
//   - error: if the update fails.
func (s *Service) Sweep(ctx context.Context) ([]int, error) {
	const op = "service.reservation.Sweep"

	cutoff := s.clock.Now().Add(-s.cfg.Lease)

	released, err := s.store.Slots().ExpireReservations(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if len(released) > 0 {
		s.changed(ctx, "expired", domain.SlotAvailable, released)
	}

	return released, nil
}

func (s *Service) changed(ctx context.Context, reason string, status domain.SlotStatus, slots []int) {
	if err := s.cache.InvalidateSlots(ctx); err != nil {
		s.log.Warn("invalidate slot cache", slog.Any("err", err))
	}

	if err := s.pubsub.PublishSlotsChanged(ctx, reason, string(status), slots); err != nil {
		s.log.Warn("publish slots changed", slog.Any("err", err))
	}
}

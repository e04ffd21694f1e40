package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/repository"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
)

type Config struct {
	SlotMapTTL  time.Duration
	CountsTTL   time.Duration
	DefaultPage int
	MaxPage     int
}

// Service serves read-only views. Cached views are for display only;
// reservation and booking never read them.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SlotMapTTL <= 0 {
		cfg.SlotMapTTL = 2 * time.Second
	}

	if cfg.CountsTTL <= 0 {
		cfg.CountsTTL = 2 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 50
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 500
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// ListSlots returns every slot with its status, ordered by number.
func (s *Service) ListSlots(ctx context.Context) ([]domain.Slot, error) {
	const op = "service.query.ListSlots"

	slots, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySlotMap(),
		s.cfg.SlotMapTTL,
		func(ctx context.Context) ([]domain.Slot, error) {
			return s.store.Slots().List(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// Counts returns the number of slots per status.
func (s *Service) Counts(ctx context.Context) (*domain.SlotCounts, error) {
	const op = "service.query.Counts"

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySlotCounts(),
		s.cfg.CountsTTL,
		func(ctx context.Context) (domain.SlotCounts, error) {
			c, err := s.store.Slots().CountsByStatus(ctx)
			if err != nil {
				return domain.SlotCounts{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

// GetSlot reads one slot straight from the store.
//
// Returns:
//   - error: query.ErrSlotNotFound if the number is outside the pool.
func (s *Service) GetSlot(ctx context.Context, number int) (*domain.Slot, error) {
	const op = "service.query.GetSlot"

	slot, err := s.store.Slots().Get(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrSlotNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slot, nil
}

// ListBookings returns bookings newest first.
func (s *Service) ListBookings(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	const op = "service.query.ListBookings"

	limit, offset = s.page(limit, offset)

	bookings, err := s.store.Bookings().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

// GetBooking returns the booking recorded for a storefront order id.
//
// Returns:
//   - error: query.ErrBookingNotFound if no booking has that order id.
func (s *Service) GetBooking(ctx context.Context, orderID string) (*domain.Booking, error) {
	const op = "service.query.GetBooking"

	b, err := s.store.Bookings().GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// ListIncidents returns paid-but-unbooked payments newest first.
func (s *Service) ListIncidents(ctx context.Context, limit, offset int) ([]domain.PaymentIncident, error) {
	const op = "service.query.ListIncidents"

	limit, offset = s.page(limit, offset)

	incidents, err := s.store.Bookings().ListIncidents(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return incidents, nil
}

func (s *Service) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		limit = s.cfg.MaxPage
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kirinyoku/slotsale/internal/catalog"
	"github.com/kirinyoku/slotsale/internal/clock"
	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/gateway"
	"github.com/kirinyoku/slotsale/internal/repository"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/uow"
)

// SignatureVerifier checks the checkout signature returned by the gateway.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// OrderFetcher reads a gateway order to confirm what was charged.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, id string) (*gateway.Order, error)
}

// Nudger is poked after a booking commits so notifications go out promptly.
type Nudger interface {
	Nudge()
}

type Config struct {
	// VerifyAmount makes Finalize compare the gateway order amount with the
	// package price before booking.
	VerifyAmount bool
	Currency     string
}

type FinalizeInput struct {
	// HoldID is the hold returned by reservation. When set, the slots are
	// booked only while that hold still owns them.
	HoldID           uuid.UUID
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	SlotNumbers      []int
	PackageID        string
	Buyer            domain.BuyerContact
}

type FinalizeResult struct {
	Booking *domain.Booking
	// Created is false when an earlier call already recorded this payment.
	Created bool
}

type Service struct {
	store    *postgresrepo.Store
	uow      *uow.UoW
	verifier SignatureVerifier
	orders   OrderFetcher
	relay    Nudger
	cache    *redisrepo.Cache
	pubsub   *redisrepo.SlotsPubSub
	clock    clock.Clock
	log      *slog.Logger
	cfg      Config
}

func New(
	store *postgresrepo.Store,
	verifier SignatureVerifier,
	orders OrderFetcher,
	relay Nudger,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SlotsPubSub,
	clk clock.Clock,
	log *slog.Logger,
	cfg Config,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	if log == nil {
		log = slog.Default()
	}

	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		verifier: verifier,
		orders:   orders,
		relay:    relay,
		cache:    cache,
		pubsub:   pubsub,
		clock:    clk,
		log:      log,
		cfg:      cfg,
	}
}

// Finalize turns a verified payment into a booking. The reserved slots
// become booked, the booking row and its notification are written in the
// same transaction. Repeating a call for the same payment returns the
// existing booking.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: gateway callback fields plus the slots, package and buyer.
//
// Returns:
//   - FinalizeResult: the booking and whether this call created it.
//   - error: booking.ErrInvalidSignature if the signature does not verify.
//   - error: booking.ErrDuplicateOrder if the order was settled by another payment.
//   - error: booking.ErrInvalidPackage, ErrSlotCountMismatch or ErrInvalidSlotNumbers.
//   - error: booking.ErrPaymentMismatch if the charged amount differs from the price.
//   - error: booking.ErrReservationLost if any slot is no longer reserved.
//   - error: booking.ErrGatewayUnavailable or ErrPersistence, both retryable.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	const op = "service.booking.Finalize"

	if s.verifier == nil || !s.verifier.Verify(in.GatewayOrderID, in.GatewayPaymentID, in.GatewaySignature) {
		s.log.Warn("payment signature rejected",
			slog.String("gateway_order_id", in.GatewayOrderID),
			slog.String("payment_id", in.GatewayPaymentID),
		)
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, ErrInvalidSignature)
	}

	if strings.TrimSpace(in.OrderID) == "" {
		in.OrderID = in.GatewayOrderID
	}

	if res, ok, err := s.existing(ctx, in); err != nil || ok {
		if err != nil {
			return FinalizeResult{}, fmt.Errorf("%s:%w", op, err)
		}
		return res, nil
	}

	numbers, err := domain.NormalizeSlotNumbers(in.SlotNumbers)
	if err != nil {
		s.incident(ctx, in, err)
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, err)
	}

	pkg, err := catalog.Resolve(numbers, in.PackageID)
	if err != nil {
		s.incident(ctx, in, err)
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.checkAmount(ctx, in, pkg); err != nil {
		if errors.Is(err, ErrPaymentMismatch) {
			s.incident(ctx, in, err)
		}
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, err)
	}

	now := s.clock.Now()
	b := &domain.Booking{
		ID:               uuid.New(),
		OrderID:          in.OrderID,
		SlotNumbers:      numbers,
		PackageID:        pkg.ID,
		UnitsGranted:     pkg.UnitsGranted,
		AmountPaid:       pkg.Price,
		Currency:         s.cfg.Currency,
		GatewayOrderID:   in.GatewayOrderID,
		PaymentReference: in.GatewayPaymentID,
		Buyer:            in.Buyer,
		Status:           domain.BookingSuccess,
		CreatedAt:        now,
	}

	err = s.uow.DoWithOpts(ctx, postgresrepo.ReadCommitted(), func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := s.store.Slots().With(tx).Book(ctx, numbers, now, in.HoldID); err != nil {
			return err
		}

		if err := s.store.Bookings().With(tx).Insert(ctx, b); err != nil {
			return err
		}

		ev := domain.BookingEvent{
			Type:      domain.EventBookingConfirmed,
			Booking:   *b,
			Package:   pkg,
			CreatedAt: now,
		}
		if err := s.store.Outbox().With(tx).Enqueue(ctx, b.ID, ev); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if s.relay != nil {
				s.relay.Nudge()
			}
			if err := s.cache.InvalidateSlots(ctx); err != nil {
				s.log.Warn("invalidate slot cache", slog.Any("err", err))
			}
			if err := s.pubsub.PublishSlotsChanged(ctx, "booked", string(domain.SlotBooked), numbers); err != nil {
				s.log.Warn("publish slots changed", slog.Any("err", err))
			}
		})

		return nil
	})
	if err == nil {
		s.log.Info("booking confirmed",
			slog.String("booking_id", b.ID.String()),
			slog.String("order_id", b.OrderID),
			slog.String("payment_id", b.PaymentReference),
			slog.Any("slots", numbers),
			slog.String("package", pkg.ID),
		)
		return FinalizeResult{Booking: b, Created: true}, nil
	}

	// a concurrent or earlier call for the same payment may have committed
	res, ok, ferr := s.existing(ctx, in)
	switch {
	case ok:
		return res, nil
	case errors.Is(ferr, ErrDuplicateOrder):
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, ErrDuplicateOrder)
	case ferr != nil:
		s.log.Warn("re-read after failed booking", slog.String("payment_id", in.GatewayPaymentID), slog.Any("err", ferr))
	}

	switch {
	case errors.Is(err, repository.ErrReservationLost):
		s.incident(ctx, in, ErrReservationLost)
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, ErrReservationLost)
	case errors.Is(err, repository.ErrConflict):
		return FinalizeResult{}, fmt.Errorf("%s:%w", op, ErrDuplicateOrder)
	}

	// nothing was committed; the gateway or client can retry the confirmation
	s.log.ErrorContext(ctx, "booking transaction failed",
		slog.String("order_id", in.OrderID),
		slog.String("payment_id", in.GatewayPaymentID),
		slog.Any("slots", numbers),
		slog.Bool("retryable", postgresrepo.IsRetryable(err)),
		slog.Any("err", err),
	)
	return FinalizeResult{}, fmt.Errorf("%s:%w: %v", op, ErrPersistence, err)
}

// existing looks for a booking already holding this order id or payment.
// The same payment on the same order is a replay; anything else overlapping
// is a duplicate.
func (s *Service) existing(ctx context.Context, in FinalizeInput) (FinalizeResult, bool, error) {
	b, err := s.store.Bookings().FindExisting(ctx, in.OrderID, in.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return FinalizeResult{}, false, nil
		}
		return FinalizeResult{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if b.OrderID != in.OrderID || b.PaymentReference != in.GatewayPaymentID {
		return FinalizeResult{}, false, ErrDuplicateOrder
	}

	return FinalizeResult{Booking: b, Created: false}, true, nil
}

func (s *Service) checkAmount(ctx context.Context, in FinalizeInput, pkg domain.Package) error {
	if !s.cfg.VerifyAmount || s.orders == nil {
		return nil
	}

	o, err := s.orders.FetchOrder(ctx, in.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gateway.ErrRejected) {
			return fmt.Errorf("%w: gateway order %q: %v", ErrPaymentMismatch, in.GatewayOrderID, err)
		}
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if o.Amount != pkg.PriceMinor() || !strings.EqualFold(o.Currency, s.cfg.Currency) {
		return fmt.Errorf("%w: charged %d %s, %s costs %d %s",
			ErrPaymentMismatch, o.Amount, o.Currency, pkg.ID, pkg.PriceMinor(), s.cfg.Currency)
	}

	return nil
}

// incident records a verified payment that could not become a booking.
func (s *Service) incident(ctx context.Context, in FinalizeInput, cause error) {
	s.log.ErrorContext(ctx, "paid but not booked",
		slog.Bool("reconciliation", true),
		slog.String("order_id", in.OrderID),
		slog.String("gateway_order_id", in.GatewayOrderID),
		slog.String("payment_id", in.GatewayPaymentID),
		slog.Any("slots", in.SlotNumbers),
		slog.String("package", in.PackageID),
		slog.String("buyer_name", in.Buyer.Name),
		slog.String("buyer_email", in.Buyer.Email),
		slog.String("buyer_phone", in.Buyer.Phone),
		slog.Any("err", cause),
	)

	inc := &domain.PaymentIncident{
		ID:               uuid.New(),
		OrderID:          in.OrderID,
		GatewayOrderID:   in.GatewayOrderID,
		PaymentReference: in.GatewayPaymentID,
		SlotNumbers:      in.SlotNumbers,
		PackageID:        in.PackageID,
		Buyer:            in.Buyer,
		Reason:           cause.Error(),
		CreatedAt:        s.clock.Now(),
	}
	if err := s.store.Bookings().RecordIncident(context.WithoutCancel(ctx), inc); err != nil {
		s.log.Error("record payment incident", slog.String("payment_id", in.GatewayPaymentID), slog.Any("err", err))
	}
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirinyoku/slotsale/internal/catalog"
	"github.com/kirinyoku/slotsale/internal/domain"
	"github.com/kirinyoku/slotsale/internal/gateway"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
)

// PaymentGateway opens payment orders with the external provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
}

type Service struct {
	gw       PaymentGateway
	limiter  *redisrepo.SlidingWindowLimiter
	currency string
	log      *slog.Logger
}

func New(
	gw PaymentGateway,
	limiter *redisrepo.SlidingWindowLimiter,
	currency string,
	log *slog.Logger,
) *Service {
	if currency == "" {
		currency = "INR"
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		gw:       gw,
		limiter:  limiter,
		currency: currency,
		log:      log,
	}
}

// CreateOrder prices the requested package and opens a gateway order for
// it. Nothing is stored locally.
//
// Parameters:
//   - ctx: request-scoped context.
//   - packageID: catalog id or legacy alias.
//   - slotNumbers: the slots the buyer reserved.
//   - rlKey: client key for rate limiting; empty disables the check.
//
// Returns:
//   - *domain.PaymentOrder: gateway order id, amount in minor units, receipt.
//   - error: orders.ErrInvalidPackage or orders.ErrSlotCountMismatch.
//   - error: orders.ErrGatewayUnavailable if the gateway cannot be reached.
func (s *Service) CreateOrder(
	ctx context.Context,
	packageID string,
	slotNumbers []int,
	rlKey string,
) (*domain.PaymentOrder, error) {
	const op = "service.orders.CreateOrder"

	numbers, err := domain.NormalizeSlotNumbers(slotNumbers)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pkg, err := catalog.Resolve(numbers, packageID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.limiter != nil && rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		switch {
		case err != nil:
			// limiter outage: serve the request rather than block checkout
			s.log.Warn("rate limiter unavailable, allowing request",
				slog.String("key", rlKey),
				slog.Any("err", err),
			)
		case !d.Allowed:
			return nil, fmt.Errorf("%s:%w", op, domain.RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	receipt := "order_" + uuid.NewString()

	o, err := s.gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		AmountMinor: pkg.PriceMinor(),
		Currency:    s.currency,
		Receipt:     receipt,
	})
	if err != nil {
		s.log.Warn("gateway order failed",
			slog.String("package", pkg.ID),
			slog.String("receipt", receipt),
			slog.Any("err", err),
		)

		if errors.Is(err, gateway.ErrRejected) {
			return nil, fmt.Errorf("%s:%w", op, ErrGatewayRejected)
		}

		return nil, fmt.Errorf("%s:%w: %v", op, ErrGatewayUnavailable, err)
	}

	return &domain.PaymentOrder{
		GatewayOrderID: o.ID,
		Amount:         pkg.PriceMinor(),
		Currency:       s.currency,
		Receipt:        receipt,
		Package:        pkg,
	}, nil
}

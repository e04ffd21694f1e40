package service

import (
	"log/slog"

	"github.com/kirinyoku/slotsale/internal/clock"
	postgres "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redis "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/service/booking"
	"github.com/kirinyoku/slotsale/internal/service/orders"
	"github.com/kirinyoku/slotsale/internal/service/query"
	"github.com/kirinyoku/slotsale/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Orders      *orders.Service
	Booking     *booking.Service
	Query       *query.Service
}

type Config struct {
	Reservation reservation.Config
	Booking     booking.Config
	Query       query.Config
}

// Deps are the collaborators shared by the services. Cache, PubSub and the
// limiters may be nil when Redis is not configured.
type Deps struct {
	Store        *postgres.Store
	Cache        *redis.Cache
	PubSub       *redis.SlotsPubSub
	ReserveLimit *redis.SlidingWindowLimiter
	OrdersLimit  *redis.SlidingWindowLimiter
	Gateway      orders.PaymentGateway
	OrderFetcher booking.OrderFetcher
	Verifier     booking.SignatureVerifier
	Relay        booking.Nudger
	Clock        clock.Clock
	Logger       *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	return &Services{
		Reservation: reservation.New(
			d.Store, d.Cache, d.PubSub, d.ReserveLimit, d.Clock, d.Logger, cfg.Reservation,
		),
		Orders: orders.New(d.Gateway, d.OrdersLimit, cfg.Booking.Currency, d.Logger),
		Booking: booking.New(
			d.Store, d.Verifier, d.OrderFetcher, d.Relay, d.Cache, d.PubSub, d.Clock, d.Logger, cfg.Booking,
		),
		Query: query.New(d.Store, d.Cache, cfg.Query),
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/slotsale/internal/clock"
	"github.com/kirinyoku/slotsale/internal/config"
	"github.com/kirinyoku/slotsale/internal/gateway"
	"github.com/kirinyoku/slotsale/internal/notify"
	"github.com/kirinyoku/slotsale/internal/postgres"
	"github.com/kirinyoku/slotsale/internal/redis"
	postgresrepo "github.com/kirinyoku/slotsale/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotsale/internal/repository/redis"
	"github.com/kirinyoku/slotsale/internal/service"
	"github.com/kirinyoku/slotsale/internal/service/booking"
	"github.com/kirinyoku/slotsale/internal/service/reservation"
	httpgin "github.com/kirinyoku/slotsale/internal/transport/http/gin"
	"github.com/kirinyoku/slotsale/migrations"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	amqp       *notify.AMQPSink
	sweeper    *reservation.Sweeper
	relay      *notify.Relay
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pgxPool}

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	if err := migrations.Apply(ctx, a.pool); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	store := postgresrepo.NewStore(a.pool)

	created, err := store.Slots().SeedPool(ctx, cfg.Reservation.PoolSize)
	if err != nil {
		return fmt.Errorf("failed to seed slot pool: %w", err)
	}
	a.logger.Info("slot pool ready", "size", cfg.Reservation.PoolSize, "created", created)

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	a.rdb = rdb

	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewSlotsPubSub(rdb)
	reserveLimit := redisrepo.NewSlidingWindowLimiter(rdb, "reserve", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	ordersLimit := redisrepo.NewSlidingWindowLimiter(rdb, "orders", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Reservation.Lease)

	var sink notify.Sink = notify.NewLogSink(a.logger)
	if cfg.RabbitMQ.URL != "" {
		amqpSink, err := notify.NewAMQPSink(notify.AMQPConfig{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.amqp = amqpSink
		sink = amqpSink
	}
	a.relay = notify.NewRelay(store.Outbox(), sink, a.logger, notify.RelayConfig{})

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	services := service.NewServices(service.Deps{
		Store:        store,
		Cache:        cache,
		PubSub:       pubsub,
		ReserveLimit: reserveLimit,
		OrdersLimit:  ordersLimit,
		Gateway:      gw,
		OrderFetcher: gw,
		Verifier:     gateway.NewSigner(cfg.Gateway.KeySecret),
		Relay:        a.relay,
		Clock:        clock.NewSystem(),
		Logger:       a.logger,
	}, service.Config{
		Reservation: reservation.Config{
			Lease:         cfg.Reservation.Lease,
			SweepInterval: cfg.Reservation.SweepInterval,
		},
		Booking: booking.Config{
			VerifyAmount: cfg.Gateway.VerifyAmount,
			Currency:     cfg.Gateway.Currency,
		},
	})

	a.sweeper = reservation.NewSweeper(services.Reservation, a.logger)

	router := httpgin.NewRouter(services, httpgin.Options{
		Idem:       idempotencyStore,
		Stream:     pubsub,
		AdminToken: cfg.AdminToken,
	}, a.logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expire stale reservations
	g.Go(func() error {
		a.logger.Info("reservation sweeper started",
			"lease", a.cfg.Reservation.Lease,
			"interval", a.cfg.Reservation.SweepInterval,
		)
		return a.sweeper.Run(gCtx)
	})

	// Deliver booking notifications
	g.Go(func() error {
		return a.relay.Run(gCtx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("close rabbitmq", "error", err)
		}
	}

	if a.rdb != nil {
		_ = a.rdb.Close()
	}

	if a.pool != nil {
		a.pool.Close()
	}
}

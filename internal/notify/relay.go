package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/slotsale/internal/domain"
)

// Outbox is the durable queue the relay drains.
type Outbox interface {
	Drain(
		ctx context.Context,
		limit int,
		deliver func(ctx context.Context, msg domain.OutboxMessage) error,
	) (int, error)
}

type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Relay moves outbox rows to a Sink. It runs on a ticker and whenever
// Nudge is called after a booking commits. Failures stay in the outbox
// and are retried on the next pass; they never reach the booking path.
type Relay struct {
	outbox Outbox
	sink   Sink
	log    *slog.Logger
	cfg    RelayConfig
	nudge  chan struct{}
}

func NewRelay(outbox Outbox, sink Sink, log *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Relay{
		outbox: outbox,
		sink:   sink,
		log:    log,
		cfg:    cfg,
		nudge:  make(chan struct{}, 1),
	}
}

// Nudge asks for a drain soon. It never blocks.
func (r *Relay) Nudge() {
	if r == nil {
		return
	}

	select {
	case r.nudge <- struct{}{}:
	default:
	}
}

// Run drains until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	r.flush(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		case <-r.nudge:
		}
		r.flush(ctx)
	}
}

// flush drains full batches until the outbox runs dry or a pass fails.
func (r *Relay) flush(ctx context.Context) {
	for ctx.Err() == nil {
		sent, err := r.DrainOnce(ctx)
		if err != nil {
			r.log.Error("outbox drain failed", slog.Any("err", err))
			return
		}
		if sent < r.cfg.BatchSize {
			return
		}
	}
}

// DrainOnce delivers at most one batch.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	const op = "notify.Relay.DrainOnce"

	sent, err := r.outbox.Drain(ctx, r.cfg.BatchSize, r.deliver)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if sent > 0 {
		r.log.Debug("outbox delivered", slog.Int("count", sent))
	}

	return sent, nil
}

func (r *Relay) deliver(ctx context.Context, msg domain.OutboxMessage) error {
	var ev domain.BookingEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := r.sink.Notify(ctx, ev); err != nil {
		r.log.Warn("notification failed",
			slog.String("booking_id", msg.BookingID.String()),
			slog.Int("attempts", msg.Attempts+1),
			slog.Any("err", err),
		)
		return err
	}

	return nil
}

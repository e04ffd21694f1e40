package reservation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs Sweep on a fixed interval until its context ends.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(svc *Service, log *slog.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: svc.cfg.SweepInterval,
		log:      log,
	}
}

// Run sweeps once immediately, then on every tick. A failed pass is logged
// and the next tick tries again.
func (w *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	w.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.pass(ctx)
		}
	}
}

func (w *Sweeper) pass(ctx context.Context) {
	released, err := w.svc.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("reservation sweep failed", slog.Any("err", err))
		}
		return
	}

	if len(released) > 0 {
		w.log.Info("reservations expired", slog.Any("slots", released))
	}
}

package workers

import (
	"context"
	"log/slog"
	"time"
)

// SweepFunc is one pass of a background enforcement: offer expiry,
// invite expiry, payment deadlines or reminders.
type SweepFunc func(ctx context.Context) error

// SweepWorker drives a sweep on a fixed interval. A failing pass is
// logged and retried on the next tick; the worker itself only stops on
// context cancellation.
type SweepWorker struct {
	log      *slog.Logger
	name     string
	interval time.Duration
	sweep    SweepFunc
}

func NewSweepWorker(log *slog.Logger, name string, interval time.Duration, sweep SweepFunc) *SweepWorker {
	return &SweepWorker{
		log:      log,
		name:     name,
		interval: interval,
		sweep:    sweep,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info("Starting sweep worker",
		slog.String("sweep", w.name),
		slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.log.Error("Sweep pass failed",
					slog.String("sweep", w.name),
					slog.Any("error", err))
			}
		}
	}
}

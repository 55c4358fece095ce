package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// PeriodicWorker calls a function on every tick of the clock.
// It drives the background refresh and the session timer.
type PeriodicWorker struct {
	log      *slog.Logger
	name     string
	clock    clock.Clock
	interval time.Duration
	fn       func(ctx context.Context)
}

func NewPeriodicWorker(log *slog.Logger, name string, clk clock.Clock,
	interval time.Duration, fn func(ctx context.Context)) *PeriodicWorker {
	return &PeriodicWorker{log: log, name: name, clock: clk, interval: interval, fn: fn}
}

func (w *PeriodicWorker) Name() string { return w.name }

func (w *PeriodicWorker) Run(ctx context.Context) error {
	w.log.Debug("Starting periodic worker", "name", w.name, "interval", w.interval)
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.fn(ctx)
		}
	}
}

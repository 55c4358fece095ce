package workers

import (
	"context"
	"log/slog"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"time"
)

// AnalyticsFanout delivers every interaction to all analytics sinks.
//
// Delivery is best effort: a sink failing or exceeding its timeout loses the
// interaction, the others still get it. Sinks are called one after the other
// so each of them sees interactions in emission order.
type AnalyticsFanout struct {
	log          *slog.Logger
	interactions <-chan domain.Interaction
	sinks        []contract.AnalyticsSink
	sinkTimeout  time.Duration
}

func NewAnalyticsFanout(log *slog.Logger, interactions <-chan domain.Interaction,
	sinkTimeout time.Duration, sinks ...contract.AnalyticsSink) *AnalyticsFanout {
	return &AnalyticsFanout{log: log, interactions: interactions, sinks: sinks, sinkTimeout: sinkTimeout}
}

func (w *AnalyticsFanout) Run(ctx context.Context) error {
	for {
		select {
		case interaction := <-w.interactions:
			w.Fanout(ctx, interaction)
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, stopping analytics fanout")
			return nil
		}
	}
}

// Fanout One sink for each interaction
func (w *AnalyticsFanout) Fanout(ctx context.Context, interaction domain.Interaction) {
	for _, sink := range w.sinks {
		w.deliver(ctx, sink, interaction)
	}
}

func (w *AnalyticsFanout) deliver(ctx context.Context, sink contract.AnalyticsSink, interaction domain.Interaction) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, interaction); err != nil {
		w.log.Debug("Analytics sink dropped interaction",
			"type", interaction.Type, "id", interaction.ID, "error", err)
	}
}

// drain flushes what is already buffered so a clean shutdown loses nothing.
func (w *AnalyticsFanout) drain() {
	for {
		select {
		case interaction := <-w.interactions:
			w.Fanout(context.Background(), interaction)
		default:
			return
		}
	}
}

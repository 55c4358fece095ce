package presentation

import (
	"context"
	"log/slog"
	"stroll-lab/domain"
	"stroll-lab/runtime"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultReconnectDelay = 3 * time.Second

type StateSource interface {
	Subscribe() *runtime.Subscription
}

// Reconnector schedules one reconnect each time the connection drops.
// The pending reconnect is cancelled if the connection leaves the disconnected
// status before the delay elapsed.
type Reconnector struct {
	log       *slog.Logger
	clock     clock.Clock
	delay     time.Duration
	source    StateSource
	reconnect func()
}

func NewReconnector(log *slog.Logger, clk clock.Clock, delay time.Duration,
	source StateSource, reconnect func()) *Reconnector {
	return &Reconnector{log: log, clock: clk, delay: delay, source: source, reconnect: reconnect}
}

func (r *Reconnector) Name() string { return "reconnector" }

func (r *Reconnector) Run(ctx context.Context) error {
	sub := r.source.Subscribe()
	defer sub.Cancel()

	var (
		status  domain.ConnectionStatus
		seen    bool
		timer   *clock.Timer
		gen     uint64
		elapsed = make(chan uint64, 4)
	)
	cancelPending := func() {
		gen++
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	defer cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			previous := status
			status = state.ConnectionStatus
			if !seen {
				seen = true
				continue
			}
			if status == previous {
				continue
			}
			cancelPending()
			if status == domain.Disconnected {
				scheduled := gen
				r.log.Debug("Connection lost, reconnect scheduled", "delay", r.delay)
				timer = r.clock.AfterFunc(r.delay, func() {
					select {
					case elapsed <- scheduled:
					default:
					}
				})
			}
		case fired := <-elapsed:
			if fired != gen || status != domain.Disconnected {
				continue
			}
			timer = nil
			r.log.Info("Reconnecting")
			r.reconnect()
		}
	}
}

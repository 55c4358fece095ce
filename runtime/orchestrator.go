// Package runtime owns the application state and wires the goroutines feeding it.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"stroll-lab/domain/event"
	"stroll-lab/realtime"
	"stroll-lab/runtime/workers"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type OrchestratorConfig struct {
	Controller           ControllerConfig
	Realtime             realtime.Timings
	SinkTimeout          time.Duration
	MetricInterval       time.Duration
	LowCapacityThreshold int
	RefreshInterval      time.Duration
	SessionTick          time.Duration
	RestartInterval      time.Duration
}

// Orchestrator builds the controller and the connection machine and runs the
// background workers under a supervisor.
type Orchestrator struct {
	mu           sync.Mutex
	log          *slog.Logger
	clock        clock.Clock
	cfg          OrchestratorConfig
	supervisor   *workers.Supervisor
	controller   *Controller
	machine      *realtime.Machine
	interactions chan domain.Interaction
	telemetry    chan event.Event
	censorship   *event.CensoredHandler
	sinks        []contract.AnalyticsSink
	extra        []contract.Worker
	done         chan struct{}
	started      bool
}

func NewOrchestrator(log *slog.Logger, clk clock.Clock, source contract.DataSource,
	moderator contract.TextModerator, rnd *rand.Rand, cfg OrchestratorConfig) *Orchestrator {
	bufferSize := cfg.Controller.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	interactions := make(chan domain.Interaction, bufferSize)
	telemetry := make(chan event.Event, bufferSize)
	cfg.Controller.Telemetry = telemetry
	controller := NewController(log, clk, source, moderator, interactions, cfg.Controller)
	machine := realtime.NewMachine(log, clk, cfg.Realtime, controller.Users, controller, rnd)
	controller.Attach(machine)

	return &Orchestrator{
		log:          log,
		clock:        clk,
		cfg:          cfg,
		supervisor:   workers.NewSupervisor(log, clk, telemetry, cfg.RestartInterval),
		controller:   controller,
		machine:      machine,
		interactions: interactions,
		telemetry:    telemetry,
		censorship:   event.NewCensoredHandler(log),
		done:         make(chan struct{}),
	}
}

// AddSinks registers analytics destinations. Must be called before Start.
func (o *Orchestrator) AddSinks(sinks ...contract.AnalyticsSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sinks...)
}

// AddWorkers supervises extra workers, such as presenters. Must be called before Start.
func (o *Orchestrator) AddWorkers(w ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, w...)
}

func (o *Orchestrator) Controller() *Controller { return o.controller }

// CensoredWords reports how many times each word was masked in outgoing messages.
func (o *Orchestrator) CensoredWords() map[string]uint64 { return o.censorship.Hits() }

// Start connects, issues the initial load and runs the supervisor in the background.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.supervisor.
		Add(o.controller).
		Add(workers.NewAnalyticsFanout(o.log, o.interactions, o.cfg.SinkTimeout, o.sinks...)).
		Add(workers.NewPeriodicWorker(o.log, "auto-refresh", o.clock, o.cfg.RefreshInterval,
			func(context.Context) { o.controller.RefreshInBackground() })).
		Add(workers.NewPeriodicWorker(o.log, "session-tick", o.clock, o.cfg.SessionTick,
			func(context.Context) { o.controller.Tick() })).
		Add(workers.NewChannelCapacityWorker(o.log, o.clock, []workers.NamedChannel{
			{Name: "controller-mailbox", Channel: o.controller.mailbox},
			{Name: "interactions", Channel: o.interactions},
		}, o.telemetry, o.cfg.MetricInterval)).
		Add(workers.NewTelemetryWorker(o.log, o.telemetry,
			event.NewChannelCapacityHandler(o.log, o.cfg.LowCapacityThreshold),
			event.NewWorkerRestartedAfterPanicHandler(o.log, event.NewCounter()),
			o.censorship)).
		Add(o.extra...)
	o.mu.Unlock()

	o.machine.Start()
	o.controller.LoadUsers()
	go func() {
		defer close(o.done)
		o.supervisor.Run(ctx)
	}()
	o.log.Info("Orchestrator started")
}

// Stop disconnects while the controller still listens, then stops the workers
// and finally closes the controller.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	started := o.started
	o.mu.Unlock()

	o.machine.Disconnect()
	o.supervisor.Stop()
	if started {
		<-o.done
	}
	o.controller.Close()
	o.log.Info("Orchestrator stopped")
}

package workers

import (
	"context"
	"log/slog"
	"stroll-lab/contract"
	"stroll-lab/domain/event"
	"stroll-lab/errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultRestartInterval = 200 * time.Millisecond

// Supervisor Own a context and a cancel function
// Run each worker in a goroutine
// Check panics and errors
// Restart workers automatically
// Shutdown properly if parent context is canceled
// Wait for the end of all goroutines via WaitGroup
type Supervisor struct {
	log             *slog.Logger
	clock           clock.Clock
	telemetry       chan<- event.Event
	restartInterval time.Duration
	wg              sync.WaitGroup
	mu              sync.Mutex
	cancel          context.CancelFunc
	stopped         bool
	workers         []contract.Worker
}

var _ contract.ISupervisor = (*Supervisor)(nil)

// NewSupervisor builds a supervisor. telemetry may be nil.
func NewSupervisor(log *slog.Logger, clk clock.Clock, telemetry chan<- event.Event, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	return &Supervisor{log: log, clock: clk, telemetry: telemetry, restartInterval: restartInterval}
}

// Run blocks until every worker returned.
// If the parent cancels, the workers are cancelled.
// If Stop is called, only the supervised workers are cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.cancel = cancel
	workers := append([]contract.Worker(nil), s.workers...)
	s.mu.Unlock()

	for _, worker := range workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision.
// A panic is recovered and the worker restarted after the restart interval.
// A worker returning nil is considered finished and never restarted.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", workerName)
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("Worker panicked", "name", workerName, "panic", r)
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart !
				s.log.Info("Worker finished", "name", workerName)
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			if err == errors.ErrWorkerPanic {
				s.report(event.NewWorkerRestartedAfterPanic(workerName, s.clock.Now()))
			}
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels every supervised worker. Run returns once they are all done.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every started worker returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// report never blocks a restart on a full telemetry channel.
func (s *Supervisor) report(e event.Event) {
	if s.telemetry == nil {
		return
	}
	select {
	case s.telemetry <- e:
	default:
		s.log.Debug("Telemetry channel full, event dropped", "type", e.Type)
	}
}

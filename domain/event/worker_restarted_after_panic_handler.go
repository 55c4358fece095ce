package event

import (
	"log/slog"
	"stroll-lab/errors"
)

// WorkerRestartedAfterPanicHandler counts the workers the supervisor had to restart.
type WorkerRestartedAfterPanicHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerRestartedAfterPanicHandler(log *slog.Logger, counter *Counter) *WorkerRestartedAfterPanicHandler {
	return &WorkerRestartedAfterPanicHandler{log: log, counter: counter}
}

func (h *WorkerRestartedAfterPanicHandler) Handle(event Event) {
	if event.Type != RestartedAfterPanicType {
		return
	}
	payload, ok := event.Payload.(WorkerRestartedAfterPanic)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error())
		return
	}
	total := h.counter.Increment(RestartedAfterPanicType)
	h.log.Warn("Worker restarted after panic", "name", payload.WorkerName, "total", total)
}

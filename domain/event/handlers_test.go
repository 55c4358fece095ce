package event

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCensoredHandler_CountsWords(t *testing.T) {
	req := require.New(t)
	handler := NewCensoredHandler(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	now := time.Now()

	// When two hits on the same word and one on another arrive
	handler.Handle(NewCensored("darn", "en", now))
	handler.Handle(NewCensored("darn", "en", now))
	handler.Handle(NewCensored("heck", "en", now))
	handler.Handle(NewWorkerRestartedAfterPanic("controller", now))

	// Then only censorship events are counted
	req.Equal(uint64(3), handler.Total())
	req.Equal(map[string]uint64{"darn": 2, "heck": 1}, handler.Hits())
}

func TestCensoredHandler_InvalidPayload(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	handler := NewCensoredHandler(slog.New(slog.NewTextHandler(&buf, nil)))

	handler.Handle(Event{Type: CensorshipHitType, Payload: "darn"})

	req.Zero(handler.Total())
	req.Contains(buf.String(), "invalid event payload")
}

func TestWorkerRestartedAfterPanicHandler(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	counter := NewCounter()
	handler := NewWorkerRestartedAfterPanicHandler(slog.New(slog.NewTextHandler(&buf, nil)), counter)

	handler.Handle(NewWorkerRestartedAfterPanic("auto-refresh", time.Now()))
	handler.Handle(NewWorkerRestartedAfterPanic("auto-refresh", time.Now()))
	handler.Handle(NewCensored("darn", "", time.Now()))

	req.Equal(uint64(2), counter.Get(RestartedAfterPanicType))
	req.Contains(buf.String(), "name=auto-refresh")
	req.Contains(buf.String(), "total=2")
}

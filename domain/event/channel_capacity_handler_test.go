package event

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func capacityEvent(length, capacity int) Event {
	return Event{
		Type:      ChannelCapacityType,
		CreatedAt: time.Now(),
		Payload:   ChannelCapacity{ChannelName: "mailbox", Capacity: capacity, Length: length},
	}
}

func TestChannelCapacityHandler_WarnsWhenLow(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	handler := NewChannelCapacityHandler(log, 2)

	// Given plenty of room left
	handler.Handle(capacityEvent(10, 100))
	req.Empty(buf.String())

	// When only one slot is left
	handler.Handle(capacityEvent(99, 100))

	// Then a warning is logged
	req.Contains(buf.String(), "Channel capacity running low")
	req.Contains(buf.String(), "channel=mailbox")
}

func TestChannelCapacityHandler_IgnoresOtherEvents(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := NewChannelCapacityHandler(log, 2)

	handler.Handle(Event{Type: StatusUpdatedType, Payload: StatusUpdated{}})
	handler.Handle(capacityEvent(0, 0))

	req.NotContains(buf.String(), "running low")
}

func TestChannelCapacityHandler_InvalidPayload(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	handler := NewChannelCapacityHandler(log, 2)

	handler.Handle(Event{Type: ChannelCapacityType, Payload: "oops"})

	req.Contains(buf.String(), "invalid event payload")
}

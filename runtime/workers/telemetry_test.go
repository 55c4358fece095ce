package workers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"stroll-lab/domain/event"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestChannelCapacity_WarnsThroughTelemetry(t *testing.T) {
	req := require.New(t)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mock := clock.NewMock()

	// Given a mailbox with a single free slot
	mailbox := make(chan func(), 4)
	for i := 0; i < 3; i++ {
		mailbox <- func() {}
	}
	telemetry := make(chan event.Event, 8)
	sampler := NewChannelCapacityWorker(log, mock,
		[]NamedChannel{{Name: "mailbox", Channel: mailbox}, {Name: "bogus", Channel: 42}},
		telemetry, time.Second)
	reporter := NewTelemetryWorker(log, telemetry, event.NewChannelCapacityHandler(log, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sampler.Run(ctx) }()
	go func() { _ = reporter.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)

	// When a sample is taken
	mock.Add(time.Second)

	// Then the low capacity is reported and the non channel is skipped
	req.Eventually(func() bool {
		logged := out.String()
		return strings.Contains(logged, "Channel capacity running low") &&
			strings.Contains(logged, "Provided object is not a channel")
	}, time.Second, 5*time.Millisecond)
	req.Contains(out.String(), "channel=mailbox")
}

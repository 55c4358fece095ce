package event

import (
	"sync"
	"time"
)

const (
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	RestartedAfterPanicType Type = "RESTARTED_AFTER_PANIC"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
)

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

// Censored is emitted once per word masked in an outgoing message.
// Language is the ISO 639-1 code of the message, empty when undetected.
type Censored struct {
	Word     string
	Language string
}

func NewWorkerRestartedAfterPanic(workerName string, at time.Time) Event {
	return Event{Type: RestartedAfterPanicType, CreatedAt: at, Payload: WorkerRestartedAfterPanic{WorkerName: workerName}}
}

func NewCensored(word, language string, at time.Time) Event {
	return Event{Type: CensorshipHitType, CreatedAt: at, Payload: Censored{Word: word, Language: language}}
}

// Counter counts occurrences per event type.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
	return c.counts[t]
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

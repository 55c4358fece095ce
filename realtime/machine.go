// Package realtime simulates a live connection: a status state machine plus
// periodic synthetic messages and presence changes.
package realtime

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"stroll-lab/domain/event"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// CannedMessages are the texts picked by the message generator.
var CannedMessages = []string{
	"Hey! How's it going?",
	"Want to grab coffee later?",
	"That sounds amazing!",
	"I'm free this weekend",
	"Let's plan something fun!",
}

type Timings struct {
	ConnectDelay    time.Duration
	MessageInterval time.Duration
	StatusInterval  time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		ConnectDelay:    time.Second,
		MessageInterval: 10 * time.Second,
		StatusInterval:  15 * time.Second,
	}
}

// RosterReader returns the users the generators may pick from.
type RosterReader func() []domain.User

// Machine owns the connection status.
// Events are published to the sink while the machine lock is held, so the sink
// sees transitions in order and must not call back into the Machine.
type Machine struct {
	log     *slog.Logger
	clock   clock.Clock
	timings Timings
	roster  RosterReader
	sink    contract.EventSink

	mu         sync.Mutex
	rand       *rand.Rand
	status     domain.ConnectionStatus
	gen        uint64
	connect    *clock.Timer
	generators []*generator
}

type generator struct {
	ticker *clock.Ticker
	stop   chan struct{}
}

func NewMachine(log *slog.Logger, clk clock.Clock, timings Timings,
	roster RosterReader, sink contract.EventSink, rnd *rand.Rand) *Machine {
	return &Machine{
		log:     log,
		clock:   clk,
		timings: timings,
		roster:  roster,
		sink:    sink,
		rand:    rnd,
		status:  domain.Disconnected,
	}
}

func (m *Machine) Status() domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start moves to connecting and schedules the connected transition.
// It is a no-op while already connecting or connected.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start()
}

// Disconnect stops the generators and any pending connection.
// Only the first call transitions; later calls return false.
func (m *Machine) Disconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnect()
}

// Reconnect is Disconnect immediately followed by Start.
func (m *Machine) Reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnect()
	m.start()
}

// Fail ends the current connection attempt with the error status.
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == domain.ConnectionError {
		return
	}
	m.cancel()
	m.setStatus(domain.ConnectionError, err)
}

func (m *Machine) start() {
	if m.status == domain.Connecting || m.status == domain.Connected {
		return
	}
	m.gen++
	gen := m.gen
	m.setStatus(domain.Connecting, nil)
	m.connect = m.clock.AfterFunc(m.timings.ConnectDelay, func() { m.connected(gen) })
}

func (m *Machine) disconnect() bool {
	if m.status == domain.Disconnected {
		return false
	}
	m.cancel()
	m.setStatus(domain.Disconnected, nil)
	return true
}

// cancel invalidates every timer armed for the current generation.
func (m *Machine) cancel() {
	m.gen++
	if m.connect != nil {
		m.connect.Stop()
		m.connect = nil
	}
	for _, g := range m.generators {
		g.ticker.Stop()
		close(g.stop)
	}
	m.generators = nil
}

func (m *Machine) connected(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.status != domain.Connecting {
		return
	}
	m.connect = nil
	m.generators = []*generator{
		m.arm(gen, m.timings.MessageInterval, m.emitMessage),
		m.arm(gen, m.timings.StatusInterval, m.emitStatus),
	}
	m.setStatus(domain.Connected, nil)
}

func (m *Machine) arm(gen uint64, interval time.Duration, emit func()) *generator {
	g := &generator{ticker: m.clock.Ticker(interval), stop: make(chan struct{})}
	go func() {
		for {
			select {
			case <-g.stop:
				return
			case <-g.ticker.C:
				m.mu.Lock()
				if gen == m.gen && m.status == domain.Connected {
					emit()
				}
				m.mu.Unlock()
			}
		}
	}()
	return g
}

// emitMessage and emitStatus run with the lock held.
func (m *Machine) emitMessage() {
	users := m.roster()
	if len(users) == 0 {
		m.log.Debug("No roster member to send a synthetic message")
		return
	}
	sender := users[m.rand.IntN(len(users))]
	text := CannedMessages[m.rand.IntN(len(CannedMessages))]
	now := m.clock.Now()
	m.publish(event.NewMessageReceived(domain.NewIncomingMessage(text, sender.Name, now), now))
}

func (m *Machine) emitStatus() {
	users := m.roster()
	if len(users) == 0 {
		m.log.Debug("No roster member to update")
		return
	}
	user := users[m.rand.IntN(len(users))]
	m.publish(event.NewStatusUpdated(user.ID, m.rand.IntN(2) == 1, m.clock.Now()))
}

func (m *Machine) setStatus(status domain.ConnectionStatus, err error) {
	m.status = status
	m.log.Debug("Connection status changed", "status", status)
	m.publish(event.NewConnectionChanged(status, err, m.clock.Now()))
}

func (m *Machine) publish(e event.Event) {
	if err := m.sink.Consume(context.Background(), e); err != nil {
		m.log.Warn("Realtime event not delivered", "type", e.Type, "error", err)
	}
}

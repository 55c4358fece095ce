package search

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const DefaultDebounce = 300 * time.Millisecond

// Engine debounces query edits.
// A query settles once no edit happened during the window. A settled query
// identical to the previously applied one is dropped, so onSettle runs once
// per distinct query.
// Edit and Stop are safe for concurrent use.
type Engine struct {
	clock    clock.Clock
	window   time.Duration
	onSettle func(query string)

	mu      sync.Mutex
	timer   *clock.Timer
	pending string
	applied string
	gen     uint64
	stopped bool
}

func NewEngine(clk clock.Clock, window time.Duration, onSettle func(query string)) *Engine {
	return &Engine{clock: clk, window: window, onSettle: onSettle}
}

// Edit records the latest query and restarts the debounce window.
func (e *Engine) Edit(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.pending = query
	e.gen++
	gen := e.gen
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = e.clock.AfterFunc(e.window, func() { e.settle(gen) })
}

// Applied returns the last query handed to onSettle.
func (e *Engine) Applied() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// Stop cancels a pending window. Later edits are ignored.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) settle(gen uint64) {
	e.mu.Lock()
	// A timer that fired while being replaced carries an old generation.
	if gen != e.gen || e.pending == e.applied {
		e.mu.Unlock()
		return
	}
	e.applied = e.pending
	query := e.applied
	e.mu.Unlock()

	e.onSettle(query)
}

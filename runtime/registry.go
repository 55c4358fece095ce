package runtime

import (
	"sync"
)

// Registry keeps the latest state and the subscribers waiting for the next one.
// Each subscriber owns a one-slot channel: a slow subscriber skips intermediate
// states and always ends up with the latest.
type Registry struct {
	mu          sync.RWMutex
	latest      State
	nextID      uint64
	subscribers map[uint64]chan State
	closed      bool
}

func NewRegistry(initial State) *Registry {
	return &Registry{latest: initial, subscribers: make(map[uint64]chan State)}
}

// Subscription is a cancellable handle on state updates.
type Subscription struct {
	updates <-chan State
	once    sync.Once
	cancel  func()
}

// Updates delivers snapshots. It is closed once the subscription is cancelled
// or the registry closed.
func (s *Subscription) Updates() <-chan State { return s.updates }

// Cancel stops the deliveries. Safe to call more than once.
func (s *Subscription) Cancel() { s.once.Do(s.cancel) }

// Subscribe registers a new subscriber. The current state is delivered right away.
func (r *Registry) Subscribe() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan State, 1)
	if r.closed {
		close(ch)
		return &Subscription{updates: ch, cancel: func() {}}
	}
	ch <- r.latest
	r.nextID++
	id := r.nextID
	r.subscribers[id] = ch
	return &Subscription{updates: ch, cancel: func() { r.unsubscribe(id) }}
}

// Publish stores the state and hands it to every subscriber, replacing an
// undelivered older state if needed. It never blocks.
func (r *Registry) Publish(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.latest = state
	for _, ch := range r.subscribers {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func (r *Registry) Latest() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Close ends every subscription. Later publications are ignored.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, id)
	}
}

func (r *Registry) unsubscribe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subscribers[id]; ok {
		close(ch)
		delete(r.subscribers, id)
	}
}

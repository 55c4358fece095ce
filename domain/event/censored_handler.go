package event

import (
	"log/slog"
	"stroll-lab/errors"
	"sync"
)

// CensoredHandler keeps a tally of masked words.
type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	hit     map[string]uint64
}

func NewCensoredHandler(log *slog.Logger) *CensoredHandler {
	return &CensoredHandler{log: log, hit: make(map[string]uint64)}
}

func (h *CensoredHandler) Handle(event Event) {
	if event.Type != CensorshipHitType {
		return
	}
	payload, ok := event.Payload.(Censored)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error())
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter++
	h.hit[payload.Word]++
	h.log.Debug("Word censored", "word", payload.Word, "lang", payload.Language, "total", h.counter)
}

// Hits returns how many times each word was masked.
func (h *CensoredHandler) Hits() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]uint64, len(h.hit))
	for word, n := range h.hit {
		out[word] = n
	}
	return out
}

func (h *CensoredHandler) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}

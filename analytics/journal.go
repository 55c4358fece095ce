// Package analytics keeps the interactions of the session in memory.
package analytics

import (
	"context"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"sync"
)

var _ contract.AnalyticsSink = (*Journal)(nil)

// Journal is an append-only, in-memory analytics sink.
type Journal struct {
	mu      sync.RWMutex
	entries []domain.Interaction
	counts  map[domain.InteractionType]int
}

func NewJournal() *Journal {
	return &Journal{counts: make(map[domain.InteractionType]int)}
}

func (j *Journal) Consume(ctx context.Context, interaction domain.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, interaction)
	j.counts[interaction.Type]++
	return nil
}

// Entries returns a copy in arrival order.
func (j *Journal) Entries() []domain.Interaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]domain.Interaction(nil), j.entries...)
}

func (j *Journal) Count(kind domain.InteractionType) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.counts[kind]
}

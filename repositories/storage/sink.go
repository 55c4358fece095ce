package storage

import (
	"context"
	"log/slog"
	"stroll-lab/contract"
	"stroll-lab/domain"
	"stroll-lab/repositories"
)

var _ contract.AnalyticsSink = DiskSink{}

// DiskSink appends every interaction to the interaction repository.
type DiskSink struct {
	repository repositories.IInteractionRepository
	log        *slog.Logger
}

func NewDiskSink(repository repositories.IInteractionRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(ctx context.Context, interaction domain.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.repository.StoreInteraction(interaction); err != nil {
		d.log.Warn("Interaction not stored", "id", interaction.ID, "error", err)
		return err
	}
	return nil
}

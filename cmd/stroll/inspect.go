package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"stroll-lab/domain"
	"stroll-lab/repositories"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the recorded interactions, newest first",
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows (overrides STROLL_INSPECT_LIMIT)")
	cmd.RunE = withCode(func(cmd *cobra.Command) (int, error) {
		cfg, err := loadInspectConfig()
		if err != nil {
			return exitConfig, fmt.Errorf("config error: %w", err)
		}
		if limit > 0 {
			cfg.Limit = limit
		}
		return inspect(cfg, cmd.OutOrStdout())
	})
	return cmd
}

func inspect(cfg InspectConfig, out io.Writer) (int, error) {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	// BypassLockGuard lets the viewer open the files while a session holds the lock.
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	interactions, err := repositories.NewInteractionRepository(db, log).ListInteractions(cfg.Limit)
	if err != nil {
		return exitRuntime, err
	}
	renderInteractions(out, interactions, time.Now(), cfg.Colours)
	return exitOK, nil
}

func renderInteractions(out io.Writer, interactions []domain.Interaction, now time.Time, colours bool) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Type", "User", "When"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for i, interaction := range interactions {
		user := "-"
		if interaction.UserID != nil {
			user = interaction.UserID.String()
		}
		kind := string(interaction.Type)
		if colours {
			kind = color.Cyan.Render(kind)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			kind,
			user,
			humanize.RelTime(interaction.At, now, "ago", "from now"),
		})
	}
	table.Render()
	fmt.Fprintf(out, "%d interaction(s)\n", len(interactions))
}

// InteractionMapper shows interactions in the debug inspector.
func InteractionMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	interaction, err := repositories.DecodeInteraction(val)
	if err != nil {
		row.Detail = "Error: decoding failed"
		return row
	}
	row.Type = string(interaction.Type)
	row.Detail = interaction.At.Format(time.RFC3339)
	if interaction.UserID != nil {
		row.Detail += " user=" + interaction.UserID.String()
	}
	return row
}

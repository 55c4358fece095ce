package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"stroll-lab/analytics"
	"stroll-lab/domain"
	"stroll-lab/internal"
	"stroll-lab/moderation"
	"stroll-lab/presentation"
	"stroll-lab/realtime"
	"stroll-lab/repositories"
	"stroll-lab/repositories/storage"
	"stroll-lab/runtime"
	"stroll-lab/services"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var noColour, headless bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the session and read commands from stdin",
	}
	cmd.Flags().BoolVar(&noColour, "no-color", false, "disable coloured status lines")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the console until interrupted")
	cmd.RunE = withCode(func(cmd *cobra.Command) (int, error) {
		return run(cmd.Context(), !noColour, headless)
	})
	return cmd
}

func run(ctx context.Context, colours, headless bool) (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, log, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	if config.DebugPort > 0 {
		endpoint := "/inspect"
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, InteractionMapper)
	}

	// 3. Backend, moderation and analytics
	clk := clock.New()
	users, err := services.LoadSeed(config.SeedFile, clk.Now())
	if err != nil {
		return exitConfig, err
	}
	rnd := rand.New(rand.NewPCG(uint64(clk.Now().UnixNano()), uint64(os.Getpid())))
	source := services.NewSimulatedDataSource(log, clk, services.Latency{
		FetchMin: config.FetchLatencyMin,
		FetchMax: config.FetchLatencyMax,
		Update:   config.UpdateLatency,
		Send:     config.SendLatency,
	}, users, rnd)

	censored, err := moderation.LoadEmbedded()
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation dictionaries: %w", err)
	}
	log.Debug("Moderation dictionaries loaded", "languages", censored.Languages, "words", len(censored.Words))
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, log)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Orchestration
	orchestrator := runtime.NewOrchestrator(log, clk, source, moderator, rnd, runtime.OrchestratorConfig{
		Controller: runtime.ControllerConfig{
			BufferSize:         config.BufferSize,
			MaxInboundMessages: config.MaxInboundMessages,
			SearchDebounce:     config.SearchDebounce,
		},
		Realtime: realtime.Timings{
			ConnectDelay:    config.ConnectDelay,
			MessageInterval: config.MessageInterval,
			StatusInterval:  config.StatusInterval,
		},
		SinkTimeout:          config.SinkTimeout,
		MetricInterval:       config.MetricInterval,
		LowCapacityThreshold: config.LowCapacityThreshold,
		RefreshInterval:      config.RefreshInterval,
		SessionTick:          config.SessionTick,
		RestartInterval:      config.RestartInterval,
	})
	journal := analytics.NewJournal()
	orchestrator.AddSinks(journal, storage.NewDiskSink(repositories.NewInteractionRepository(db, log), log))
	controller := orchestrator.Controller()
	orchestrator.AddWorkers(presentation.NewReconnector(log, clk, config.ReconnectDelay, controller, controller.Reconnect))

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting orchestrator...")
	orchestrator.Start(ctx)

	// 6. Wait for the console to quit or for a signal
	if headless {
		<-ctx.Done()
		log.Info("Shutdown signal received")
	} else {
		console := presentation.NewConsole(log, clk, controller, os.Stdin, os.Stdout, colours)
		if err := console.Run(ctx); err != nil {
			log.Error("Console stopped", "error", err)
		}
	}

	// 7. Graceful shutdown
	log.Info("Shutting down gracefully...")
	orchestrator.Stop()
	log.Info("Session ended",
		"interactions", len(journal.Entries()),
		"profile_views", journal.Count(domain.ProfileView),
		"searches", journal.Count(domain.Search),
		"censored_words", len(orchestrator.CensoredWords()))
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, log *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

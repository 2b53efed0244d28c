package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/gomemory/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := server.NewConfigFromEnv()
	var (
		origins  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "memory-server",
		Short: "Coordinates a multiplayer memory card-matching session over WebSocket",
		Long: `memory-server hosts one memory session for a fixed number of players.

Players connect over WebSocket, register a name, and the board is dealt
as soon as the last seat is filled. Every change is broadcast to all
players as "<action>|<state>" frames.

Flags override the environment (SERVER_PORT, WS_PATH, ALLOWED_ORIGINS,
REQUIRED_PLAYERS, PAIRS_COUNT, READY_TIMEOUT, NUMERIC_ACTION_TYPES, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("origins") {
				cfg.AllowedOrigins = strings.Split(origins, ",")
			}
			logger := newLogger(logLevel)
			return run(cmd.Context(), *cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Port, "port", cfg.Port, "listen address")
	flags.StringVar(&cfg.Path, "path", cfg.Path, "WebSocket path")
	flags.IntVar(&cfg.Game.RequiredPlayers, "players", cfg.Game.RequiredPlayers, "players needed to start a session")
	flags.IntVar(&cfg.Game.PairsCount, "pairs", cfg.Game.PairsCount, "card pairs on the board")
	flags.DurationVar(&cfg.Game.ReadyTimeout, "ready-timeout", cfg.Game.ReadyTimeout, "time to collect restart votes (0 waits forever)")
	flags.Uint64Var(&cfg.Game.Seed, "seed", 0, "fixed shuffle seed (0 seeds from the clock)")
	flags.StringVar(&origins, "origins", strings.Join(cfg.AllowedOrigins, ","), "comma-separated allowed browser origins, * for any")
	flags.BoolVar(&cfg.NumericActionTypes, "numeric-actions", cfg.NumericActionTypes, "write actionType as its ordinal for desktop clients")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, cfg server.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := server.NewHub(cfg,
		server.WithLogger(logger.With("component", "hub")),
		server.WithMetrics(server.NewMetrics(reg)),
	)
	go hub.Run()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(hub, reg))
	ln, err := server.Listen(httpServer)
	if err != nil {
		_ = hub.Shutdown(shutdownTimeout)
		return err
	}

	logger.Info("starting memory server",
		"addr", cfg.Port, "path", cfg.Path,
		"players", cfg.Game.RequiredPlayers, "pairs", cfg.Game.PairsCount)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(httpServer, ln, logger)
	}()

	select {
	case err := <-errCh:
		_ = hub.Shutdown(shutdownTimeout)
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout, logger); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Error("hub shutdown failed", "error", err)
	}
	return nil
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/server"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Resolve and cache the duration of every catalog item",
	RunE:  runWarm,
}

func runWarm(cmd *cobra.Command, _ []string) error {
	cfg, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	services, err := server.NewServices(cfg, database)
	if err != nil {
		return err
	}
	defer services.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := services.Content.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}

	summary := services.Resolver.Prewarm(ctx, items)

	logger.Log.Info().
		Int("total", summary.Total).
		Int("cached", summary.Cached).
		Int("probed", summary.Probed).
		Int("estimated", summary.Estimated).
		Msg("Duration cache warmed")

	fmt.Fprintf(cmd.OutOrStdout(), "%d items: %d cached, %d probed, %d estimated\n",
		summary.Total, summary.Cached, summary.Probed, summary.Estimated)
	return ctx.Err()
}

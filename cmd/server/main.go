// Command server runs the RetroGuide channel service and its maintenance commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/server"
)

const shutdownTimeout = 15 * time.Second

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Looping broadcast channels with an M3U channel list and XMLTV guide",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, warmCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, initializes logging and opens the database
func bootstrap() (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := db.OpenWithOptions(cfg.Database.Path, db.Options{
		ConnectionTimeout: cfg.Database.ConnectionTimeout,
		EnableWAL:         cfg.Database.EnableWAL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Log.Info().
		Str("database", cfg.Database.Path).
		Str("library", cfg.Media.LibraryPath).
		Str("cache_backend", cfg.Duration.CacheBackend).
		Msg("Configuration loaded")

	return cfg, database, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, database, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	services, err := server.NewServices(cfg, database)
	if err != nil {
		return err
	}
	srv := server.New(cfg, services)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		services.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

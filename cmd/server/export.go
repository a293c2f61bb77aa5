package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/retroguide/internal/guide"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/server"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the channel list and program guide to files",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("m3u", "", "path of the M3U channel list to write")
	exportCmd.Flags().String("xmltv", "", "path of the XMLTV guide to write")
	exportCmd.Flags().Bool("prewarm", true, "resolve durations before rendering")
}

func runExport(cmd *cobra.Command, _ []string) error {
	m3uPath, _ := cmd.Flags().GetString("m3u")
	xmltvPath, _ := cmd.Flags().GetString("xmltv")
	prewarm, _ := cmd.Flags().GetBool("prewarm")
	if m3uPath == "" && xmltvPath == "" {
		return errors.New("at least one of --m3u or --xmltv is required")
	}

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

	ctx := cmd.Context()
	exporter := services.Exporter

	if prewarm {
		items, err := exporter.Items(ctx)
		if err != nil {
			return fmt.Errorf("failed to load playlists: %w", err)
		}
		services.Resolver.Prewarm(ctx, items)
	}

	if m3uPath != "" {
		err := writeAtomically(m3uPath, func(w io.Writer) error {
			return exporter.ChannelList(ctx, w)
		})
		if err != nil {
			return fmt.Errorf("failed to export channel list: %w", err)
		}
		logger.Log.Info().Str("path", m3uPath).Msg("Channel list exported")
	}

	if xmltvPath != "" {
		var stats guide.GuideStats
		err := writeAtomically(xmltvPath, func(w io.Writer) error {
			start, end := exporter.Window()
			var err error
			stats, err = exporter.Guide(ctx, w, start, end)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to export guide: %w", err)
		}
		logger.Log.Info().
			Str("path", xmltvPath).
			Int("channels", stats.Channels).
			Int("programmes", stats.Programmes).
			Msg("Guide exported")
	}

	return nil
}

// writeAtomically replaces path with what render writes, leaving the old
// file untouched when rendering fails
func writeAtomically(path string, render func(w io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := render(pending); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}


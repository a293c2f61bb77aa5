package server

import (
	"fmt"
	"io"

	"github.com/stwalsh4118/retroguide/internal/api"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/guide"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/media"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

// Services is the wired application graph shared by the HTTP server and the CLI commands
type Services struct {
	Config *config.Config
	DB     *db.DB
	Repos  *db.Repositories

	Store    duration.Store
	Resolver *duration.Resolver
	Warmer   *duration.Warmer
	Watcher  *duration.FileWatcher

	Catalog  *channel.Catalog
	Channels *channel.ChannelService
	Playlist *channel.PlaylistService
	Content  *channel.ContentService

	Timeline  *timeline.TimelineService
	Exporter  *guide.Exporter
	Publisher *guide.Publisher
}

// NewServices builds every service on top of an open database
func NewServices(cfg *config.Config, database *db.DB) (*Services, error) {
	repos := db.NewRepositories(database)

	store, err := duration.NewStore(cfg.Duration, database)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration store: %w", err)
	}

	if err := media.CheckFFprobeInstalled(); err != nil {
		logger.Log.Warn().
			Err(err).
			Msg("ffprobe not available, durations will fall back to estimates")
	}
	prober := media.NewFFprobe(cfg.Media.LibraryPath)
	resolver := duration.NewResolver(store, prober, duration.OptionsFromConfig(cfg.Duration))

	catalog := channel.NewCatalog(repos)
	anchors := timeline.NewAnchorRegistry(repos.Channels)
	timelineService := timeline.NewTimelineService(catalog, resolver, anchors, cfg.Guide.MaxUpcoming)

	exporter, err := guide.NewExporter(catalog, timelineService, cfg.Guide)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:    cfg,
		DB:        database,
		Repos:     repos,
		Store:     store,
		Resolver:  resolver,
		Warmer:    duration.NewWarmer(resolver),
		Catalog:   catalog,
		Channels:  channel.NewChannelService(repos, timelineService),
		Playlist:  channel.NewPlaylistService(database, repos, timelineService),
		Content:   channel.NewContentService(repos, cfg.Media),
		Timeline:  timelineService,
		Exporter:  exporter,
		Publisher: guide.NewPublisher(exporter, resolver, cfg.Guide.RefreshInterval),
	}

	if cfg.Duration.WatchFiles {
		watcher, err := duration.NewFileWatcher(cfg.Media.LibraryPath, cfg.Media.SupportedFormats, repos.Content, resolver)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.Watcher = watcher
	}

	return s, nil
}

// CacheHealth returns the duration store's health checker when it has one
func (s *Services) CacheHealth() api.HealthChecker {
	if hc, ok := s.Store.(api.HealthChecker); ok {
		return hc
	}
	return nil
}

// Close stops background workers and releases the duration store.
// The database is owned by the caller.
func (s *Services) Close() {
	if s.Publisher != nil {
		s.Publisher.Stop()
	}
	if s.Watcher != nil {
		if err := s.Watcher.Stop(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to stop file watcher")
		}
	}
	if s.Warmer != nil {
		s.Warmer.Stop()
	}
	if closer, ok := s.Store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close duration store")
		}
	}
}

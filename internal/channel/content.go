package channel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/media"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// ContentInput describes a file to register in the catalog
type ContentInput struct {
	FilePath string
	Title    string
	Tags     []string
	Year     *int
	Category *string
}

// ContentService registers and lists catalog content items
type ContentService struct {
	repos       *db.Repositories
	libraryPath string
	formats     []string
}

// NewContentService creates a content service for the configured media library
func NewContentService(repos *db.Repositories, cfg config.MediaConfig) *ContentService {
	return &ContentService{
		repos:       repos,
		libraryPath: cfg.LibraryPath,
		formats:     cfg.SupportedFormats,
	}
}

// Register validates a file and adds it to the catalog. Paths inside the
// library are stored relative to it. A missing title is derived from the filename.
func (s *ContentService) Register(ctx context.Context, in ContentInput) (*models.ContentItem, error) {
	if !media.IsSupportedFormat(in.FilePath, s.formats) {
		return nil, fmt.Errorf("failed to register content: %s: %w", filepath.Ext(in.FilePath), ErrUnsupportedFormat)
	}

	onDisk := in.FilePath
	if !filepath.IsAbs(onDisk) && s.libraryPath != "" {
		onDisk = filepath.Join(s.libraryPath, onDisk)
	}
	if v := media.ValidateFile(onDisk); !v.Readable {
		logger.Log.Warn().
			Str("file_path", onDisk).
			Strs("reasons", v.Reasons).
			Msg("Content registration failed: file not readable")
		return nil, fmt.Errorf("failed to register content: %s: %w", strings.Join(v.Reasons, "; "), ErrUnreadableContent)
	}

	parsed := media.ParseFilename(in.FilePath)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = parsed.Title
	}

	item := models.NewContentItem(s.catalogPath(onDisk), title)
	item.Year = in.Year
	if item.Year == nil {
		item.Year = parsed.Year
	}
	if len(in.Tags) > 0 {
		tags := strings.Join(in.Tags, ",")
		item.Tags = &tags
	}
	item.Category = in.Category

	if err := s.repos.Content.Create(ctx, item); err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("failed to register content: %w", ErrDuplicateContent)
		}
		return nil, fmt.Errorf("failed to register content: %w", err)
	}

	logger.Log.Info().
		Str("content_item_id", item.ID.String()).
		Str("file_path", item.FilePath).
		Str("title", item.Title).
		Msg("Content registered")

	return item, nil
}

// GetByID returns a content item or ErrContentNotFound
func (s *ContentService) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item, err := s.repos.Content.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return item, nil
}

// List returns a page of content items and the total count
func (s *ContentService) List(ctx context.Context, limit, offset int) ([]*models.ContentItem, int64, error) {
	items, err := s.repos.Content.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Content.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// All returns every content item, used for bulk pre-warming
func (s *ContentService) All(ctx context.Context) ([]*models.ContentItem, error) {
	return s.repos.Content.List(ctx, 0, 0)
}

// catalogPath makes paths under the library root relative to it
func (s *ContentService) catalogPath(onDisk string) string {
	if s.libraryPath == "" {
		return onDisk
	}
	root, err := filepath.Abs(s.libraryPath)
	if err != nil {
		return onDisk
	}
	abs, err := filepath.Abs(onDisk)
	if err != nil {
		return onDisk
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return onDisk
	}
	return filepath.ToSlash(rel)
}

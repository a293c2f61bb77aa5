package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// ContentRepository handles database operations for catalog content items
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content item into the database
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	result := r.db.WithContext(ctx).Create(item)
	if result.Error != nil {
		return fmt.Errorf("failed to create content item: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a content item by its UUID
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	var item models.ContentItem
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&item)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &item, nil
}

// GetByPath retrieves a content item by its file path
func (r *ContentRepository) GetByPath(ctx context.Context, path string) (*models.ContentItem, error) {
	var item models.ContentItem
	result := r.db.WithContext(ctx).Where("file_path = ?", path).First(&item)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &item, nil
}

// List retrieves content items with pagination (limit <= 0 returns everything)
func (r *ContentRepository) List(ctx context.Context, limit, offset int) ([]*models.ContentItem, error) {
	var items []*models.ContentItem
	query := r.db.WithContext(ctx).Order("created_at ASC, id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	result := query.Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list content items: %w", MapGormError(result.Error))
	}
	return items, nil
}

// Count returns the total number of content items
func (r *ContentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.ContentItem{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count content items: %w", MapGormError(result.Error))
	}
	return count, nil
}

// ExistsByIDs checks which content item IDs exist in the database
func (r *ContentRepository) ExistsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	existsMap := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return existsMap, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
		existsMap[id] = false
	}

	var existing []models.ContentItem
	result := r.db.WithContext(ctx).Select("id").Where("id IN ?", idStrings).Find(&existing)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to check content item existence: %w", MapGormError(result.Error))
	}

	for i := range existing {
		existsMap[existing[i].ID] = true
	}
	return existsMap, nil
}

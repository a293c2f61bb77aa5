package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/models"
	"gorm.io/gorm/clause"
)

// DurationRepository handles the persistent duration cache
type DurationRepository struct {
	db *DB
}

// NewDurationRepository creates a new duration cache repository
func NewDurationRepository(db *DB) *DurationRepository {
	return &DurationRepository{db: db}
}

// Get retrieves the cached duration for a content item
func (r *DurationRepository) Get(ctx context.Context, contentItemID uuid.UUID) (*models.DurationCacheEntry, error) {
	var entry models.DurationCacheEntry
	result := r.db.WithContext(ctx).Where("content_item_id = ?", contentItemID.String()).First(&entry)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &entry, nil
}

// GetMany retrieves cached durations for several content items in one query.
// Missing ids are simply absent from the returned map.
func (r *DurationRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DurationCacheEntry, error) {
	out := make(map[uuid.UUID]*models.DurationCacheEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	var entries []*models.DurationCacheEntry
	result := r.db.WithContext(ctx).Where("content_item_id IN ?", idStrings).Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get cached durations: %w", MapGormError(result.Error))
	}

	for _, entry := range entries {
		out[entry.ContentItemID] = entry
	}
	return out, nil
}

// Upsert stores a duration, replacing any previous value (last writer wins)
func (r *DurationRepository) Upsert(ctx context.Context, entry *models.DurationCacheEntry) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"duration_seconds", "resolved_at"}),
		}).
		Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to store duration: %w", MapGormError(result.Error))
	}
	return nil
}

// Delete removes a cached duration. Deleting a missing entry is not an error.
func (r *DurationRepository) Delete(ctx context.Context, contentItemID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("content_item_id = ?", contentItemID.String()).
		Delete(&models.DurationCacheEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cached duration: %w", MapGormError(result.Error))
	}
	return nil
}

// Count returns the number of cached durations
func (r *DurationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.DurationCacheEntry{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count cached durations: %w", MapGormError(result.Error))
	}
	return count, nil
}

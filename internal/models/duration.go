package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DurationCacheEntry is a resolved playback length for a content item
type DurationCacheEntry struct {
	ContentItemID   uuid.UUID `json:"content_item_id" gorm:"type:text;primaryKey;column:content_item_id"`
	DurationSeconds float64   `json:"duration_seconds" gorm:"type:real;not null;column:duration_seconds"`
	ResolvedAt      time.Time `json:"resolved_at" gorm:"type:datetime;not null;column:resolved_at"`
}

// TableName overrides the gorm default table name
func (DurationCacheEntry) TableName() string {
	return "duration_cache"
}

// Duration returns the cached length as a time.Duration
func (e *DurationCacheEntry) Duration() time.Duration {
	return time.Duration(e.DurationSeconds * float64(time.Second))
}

// FormatSeconds returns a duration in HH:MM:SS format
func FormatSeconds(seconds float64) string {
	total := int64(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

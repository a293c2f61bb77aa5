package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaylistItem represents one position in a channel's playlist.
// The same content item may appear at several positions.
type PlaylistItem struct {
	ID            uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID     uuid.UUID `json:"channel_id" gorm:"type:text;not null;column:channel_id" validate:"required"`
	ContentItemID uuid.UUID `json:"content_item_id" gorm:"type:text;not null;column:content_item_id" validate:"required"`
	Position      int       `json:"position" gorm:"type:integer;not null;column:position" validate:"gte=0"`
	CreatedAt     time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`

	// Populated by joins, not stored in database
	ContentItem *ContentItem `json:"content_item,omitempty" gorm:"foreignKey:ContentItemID"`
}

// NewPlaylistItem creates a new PlaylistItem with generated UUID and timestamp
func NewPlaylistItem(channelID, contentItemID uuid.UUID, position int) *PlaylistItem {
	return &PlaylistItem{
		ID:            uuid.New(),
		ChannelID:     channelID,
		ContentItemID: contentItemID,
		Position:      position,
		CreatedAt:     time.Now().UTC(),
	}
}

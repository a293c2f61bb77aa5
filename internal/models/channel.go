package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a looping broadcast channel built from an ordered playlist
type Channel struct {
	ID     uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Number int       `json:"number" gorm:"type:integer;not null;uniqueIndex;column:number"`
	Name   string    `json:"name" gorm:"type:text;not null;column:name" validate:"required,min=1,max=255"`
	Icon   *string   `json:"icon,omitempty" gorm:"type:text;column:icon"`
	// AnchorTime is phase zero of the channel's loop; nil until the first schedule request
	AnchorTime        *time.Time `json:"anchor_time,omitempty" gorm:"type:datetime;column:anchor_time"`
	AnchorFingerprint string     `json:"-" gorm:"type:text;not null;default:'';column:anchor_fingerprint"`
	CreatedAt         time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewChannel creates a new Channel with generated UUID and timestamps
func NewChannel(number int, name string) *Channel {
	now := time.Now().UTC()
	return &Channel{
		ID:        uuid.New(),
		Number:    number,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

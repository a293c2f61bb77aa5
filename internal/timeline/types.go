package timeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// MinSlotDuration is the floor applied to every item length so a loop can never stall
const MinSlotDuration = time.Second

// Slot is one playlist entry paired with the length used for scheduling
type Slot struct {
	Item      *models.ContentItem
	Duration  time.Duration
	Estimated bool
}

// Program is one concrete airing of a content item on a channel.
// Start and stop times are never clipped to the requested window.
type Program struct {
	ChannelID uuid.UUID           `json:"channel_id"`
	Item      *models.ContentItem `json:"content_item"`
	// SequenceIndex is the item's position within one loop iteration
	SequenceIndex int       `json:"sequence_index"`
	StartTime     time.Time `json:"start_time"`
	StopTime      time.Time `json:"stop_time"`
	// Estimated is set when the item's length is a fallback rather than a measurement
	Estimated bool `json:"estimated"`
}

// Duration returns how long the program airs
func (p Program) Duration() time.Duration {
	return p.StopTime.Sub(p.StartTime)
}

// Position describes what is airing at an instant
type Position struct {
	Program Program
	// ResumeOffset is the elapsed time into the program at the instant
	ResumeOffset time.Duration
}

// Anchor is the phase-zero instant of a channel's loop, tagged with the
// playlist composition it was computed for
type Anchor struct {
	Time        time.Time
	Fingerprint string
}

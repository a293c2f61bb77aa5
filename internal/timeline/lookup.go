package timeline

import (
	"context"

	"github.com/google/uuid"
)

// WhatsOnNow returns the program airing right now and the offset to resume
// playback from. It returns nil when the channel has nothing to air.
func (s *TimelineService) WhatsOnNow(ctx context.Context, channelID uuid.UUID) (*Position, error) {
	return s.LookupInstant(ctx, channelID, s.now())
}

// Upcoming returns count programs starting with the one airing now.
// count is clamped to [1, maxUpcoming].
func (s *TimelineService) Upcoming(ctx context.Context, channelID uuid.UUID, count int) ([]Program, error) {
	count = max(1, min(count, s.maxUpcoming))

	snap, err := s.Snapshot(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return snap.Schedule.Next(s.now(), count), nil
}

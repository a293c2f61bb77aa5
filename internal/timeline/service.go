package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// ChannelSource supplies channels and their ordered playlists
type ChannelSource interface {
	GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	GetPlaylist(ctx context.Context, id uuid.UUID) ([]*models.ContentItem, error)
}

// DurationSource resolves a playlist's item lengths in one snapshot
type DurationSource interface {
	ResolveAll(ctx context.Context, items []*models.ContentItem) map[uuid.UUID]duration.Result
}

// ChannelSnapshot pairs a channel with the schedule computed for it
type ChannelSnapshot struct {
	Channel  *models.Channel
	Schedule *Schedule
}

// TimelineService builds schedules from the catalog, the duration resolver
// and the anchor registry
//
//nolint:revive // Service name matches established patterns in codebase
type TimelineService struct {
	catalog     ChannelSource
	durations   DurationSource
	anchors     *AnchorRegistry
	maxUpcoming int
	now         func() time.Time
}

// NewTimelineService creates a new timeline service instance
func NewTimelineService(catalog ChannelSource, durations DurationSource, anchors *AnchorRegistry, maxUpcoming int) *TimelineService {
	if maxUpcoming < 1 {
		maxUpcoming = 50
	}
	return &TimelineService{
		catalog:     catalog,
		durations:   durations,
		anchors:     anchors,
		maxUpcoming: maxUpcoming,
		now:         time.Now,
	}
}

// Snapshot resolves the channel's durations once and returns an immutable
// schedule for it. Empty channels get an empty schedule and no anchor.
func (s *TimelineService) Snapshot(ctx context.Context, channelID uuid.UUID) (*ChannelSnapshot, error) {
	ch, err := s.catalog.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return s.snapshotChannel(ctx, ch)
}

// SnapshotChannel is Snapshot for a channel the caller already loaded
func (s *TimelineService) SnapshotChannel(ctx context.Context, ch *models.Channel) (*ChannelSnapshot, error) {
	return s.snapshotChannel(ctx, ch)
}

// maxSnapshotAttempts bounds how often a snapshot restarts when the
// playlist changes while its durations are being resolved
const maxSnapshotAttempts = 3

func (s *TimelineService) snapshotChannel(ctx context.Context, ch *models.Channel) (*ChannelSnapshot, error) {
	for attempt := 1; ; attempt++ {
		revision := s.anchors.Revision(ch.ID)

		items, err := s.catalog.GetPlaylist(ctx, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist: %w", err)
		}

		if len(items) == 0 {
			return &ChannelSnapshot{Channel: ch, Schedule: NewSchedule(ch.ID, time.Time{}, nil)}, nil
		}

		resolved := s.durations.ResolveAll(ctx, items)

		anchor, current := s.anchors.ResolveSince(ctx, ch, Fingerprint(items), revision)
		if !current && attempt < maxSnapshotAttempts {
			logger.Log.Debug().
				Str("channel_id", ch.ID.String()).
				Int("attempt", attempt).
				Msg("Playlist changed during schedule build, retrying")
			continue
		}

		return s.buildSnapshot(ch, items, resolved, anchor), nil
	}
}

func (s *TimelineService) buildSnapshot(ch *models.Channel, items []*models.ContentItem, resolved map[uuid.UUID]duration.Result, anchor Anchor) *ChannelSnapshot {
	slots := make([]Slot, len(items))
	estimated := 0
	for i, item := range items {
		res, ok := resolved[item.ID]
		if !ok {
			res = duration.Result{Estimated: true}
		}
		if res.Estimated {
			estimated++
		}
		slots[i] = Slot{Item: item, Duration: res.Duration(), Estimated: res.Estimated}
	}

	schedule := NewSchedule(ch.ID, anchor.Time, slots)

	logger.Log.Debug().
		Str("channel_id", ch.ID.String()).
		Int("items", len(items)).
		Int("estimated_items", estimated).
		Dur("cycle_length", schedule.CycleLength()).
		Time("anchor", anchor.Time).
		Msg("Built channel schedule")

	return &ChannelSnapshot{Channel: ch, Schedule: schedule}
}

// GenerateWindow returns the programs airing on a channel between start and end
//
// Returns:
//   - []Program: gap-free programs, empty for channels with nothing to air
//   - error: ErrInvalidWindow, channel.ErrChannelNotFound, or wrapped catalog errors
func (s *TimelineService) GenerateWindow(ctx context.Context, channelID uuid.UUID, start, end time.Time) ([]Program, error) {
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}

	snap, err := s.Snapshot(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return snap.Schedule.Window(start, end)
}

// LookupInstant returns what airs on a channel at instant with the resume
// offset, or nil when the channel has nothing to air
func (s *TimelineService) LookupInstant(ctx context.Context, channelID uuid.UUID, instant time.Time) (*Position, error) {
	snap, err := s.Snapshot(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return snap.Schedule.At(instant), nil
}

// ResetAnchor re-anchors a channel at the current time
func (s *TimelineService) ResetAnchor(ctx context.Context, channelID uuid.UUID) (Anchor, error) {
	ch, err := s.catalog.GetChannel(ctx, channelID)
	if err != nil {
		return Anchor{}, err
	}
	items, err := s.catalog.GetPlaylist(ctx, channelID)
	if err != nil {
		return Anchor{}, fmt.Errorf("failed to get playlist: %w", err)
	}
	return s.anchors.Reset(ctx, ch.ID, Fingerprint(items)), nil
}

// PlaylistChanged is called after a playlist mutation. The anchor moves to
// now when the composition differs from the one it was computed for.
func (s *TimelineService) PlaylistChanged(ctx context.Context, channelID uuid.UUID) {
	ch, err := s.catalog.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, channel.ErrChannelNotFound) {
			s.anchors.Forget(channelID)
			return
		}
		logger.Log.Warn().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to load channel after playlist change")
		return
	}

	items, err := s.catalog.GetPlaylist(ctx, channelID)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to load playlist after playlist change")
		return
	}

	s.anchors.Observe(ctx, ch, Fingerprint(items))
}

var _ channel.CompositionObserver = (*TimelineService)(nil)

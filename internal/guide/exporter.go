package guide

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/metrics"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

// Metric labels for the rendered documents
const (
	documentChannelList = "m3u"
	documentGuide       = "xmltv"
	documentStream      = "hls"
)

// CatalogSource lists channels in catalog order with their playlists
type CatalogSource interface {
	ListChannels(ctx context.Context) ([]*models.Channel, error)
	GetPlaylist(ctx context.Context, id uuid.UUID) ([]*models.ContentItem, error)
}

// ScheduleSource builds channel schedules
type ScheduleSource interface {
	Snapshot(ctx context.Context, channelID uuid.UUID) (*timeline.ChannelSnapshot, error)
	SnapshotChannel(ctx context.Context, ch *models.Channel) (*timeline.ChannelSnapshot, error)
}

// Exporter gathers schedules and hands them to the renderers
type Exporter struct {
	catalog   CatalogSource
	schedules ScheduleSource
	cfg       config.GuideConfig
	location  *time.Location
	now       func() time.Time
}

// NewExporter creates an exporter. It fails only when the configured timezone is unknown.
func NewExporter(catalog CatalogSource, schedules ScheduleSource, cfg config.GuideConfig) (*Exporter, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid guide timezone %q: %w", cfg.Timezone, err)
	}
	return &Exporter{
		catalog:   catalog,
		schedules: schedules,
		cfg:       cfg,
		location:  loc,
		now:       time.Now,
	}, nil
}

// Window returns the default guide window starting now
func (e *Exporter) Window() (time.Time, time.Time) {
	start := e.now().UTC().Truncate(time.Second)
	return start, start.Add(e.cfg.Window())
}

// ChannelList writes the M3U channel list
func (e *Exporter) ChannelList(ctx context.Context, w io.Writer) error {
	started := time.Now()

	channels, err := e.catalog.ListChannels(ctx)
	if err != nil {
		return err
	}

	entries := make([]ChannelEntry, 0, len(channels))
	for _, ch := range channels {
		items, err := e.catalog.GetPlaylist(ctx, ch.ID)
		if err != nil {
			return err
		}
		entries = append(entries, EntryFromChannel(ch, len(items)))
	}

	err = RenderChannelList(w, entries, ListOptions{
		BaseURL:    e.cfg.BaseURL,
		GroupTitle: e.cfg.GroupTitle,
		IDSuffix:   e.cfg.IDSuffix,
	})
	metrics.ObserveGuideGeneration(documentChannelList, time.Since(started))
	return err
}

// Guide writes the XMLTV guide for [start, end]. A channel whose schedule
// cannot be built is left out and logged; the rest of the guide is still written.
func (e *Exporter) Guide(ctx context.Context, w io.Writer, start, end time.Time) (GuideStats, error) {
	if end.Before(start) {
		return GuideStats{}, timeline.ErrInvalidWindow
	}
	started := time.Now()

	schedules, err := e.Schedules(ctx, start, end)
	if err != nil {
		return GuideStats{}, err
	}

	stats, err := RenderGuide(w, schedules, GuideOptions{
		GeneratorName:     e.cfg.GeneratorName,
		DescriptionPrefix: e.cfg.DescriptionPrefix,
		IDSuffix:          e.cfg.IDSuffix,
		Location:          e.location,
		Clip:              e.cfg.Clip,
		WindowStart:       start,
		WindowEnd:         end,
	})
	if err != nil {
		return GuideStats{}, err
	}

	elapsed := time.Since(started)
	metrics.ObserveGuideGeneration(documentGuide, elapsed)
	metrics.SetGuideSize(stats.Channels, stats.Programmes)

	logger.Log.Info().
		Int("channels", stats.Channels).
		Int("programmes", stats.Programmes).
		Dur("elapsed", elapsed).
		Msg("Program guide rendered")

	return stats, nil
}

// Schedules returns every non-empty channel's programs for [start, end] in catalog order
func (e *Exporter) Schedules(ctx context.Context, start, end time.Time) ([]ChannelSchedule, error) {
	channels, err := e.catalog.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ChannelSchedule, 0, len(channels))
	for _, ch := range channels {
		snap, err := e.schedules.SnapshotChannel(ctx, ch)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("channel_id", ch.ID.String()).
				Msg("Skipping channel in guide")
			continue
		}
		if snap.Schedule.Empty() {
			continue
		}

		programs, err := snap.Schedule.Window(start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, ChannelSchedule{
			Channel:  EntryFromChannel(ch, snap.Schedule.Len()),
			Programs: programs,
		})
	}
	return out, nil
}

// Items returns the content items of every channel, used to pre-warm durations
func (e *Exporter) Items(ctx context.Context) ([]*models.ContentItem, error) {
	channels, err := e.catalog.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	var items []*models.ContentItem
	for _, ch := range channels {
		playlist, err := e.catalog.GetPlaylist(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, playlist...)
	}
	return items, nil
}

// Stream writes the HLS playlist for a channel: the program airing now and the next few
func (e *Exporter) Stream(ctx context.Context, w io.Writer, channelID uuid.UUID) error {
	started := time.Now()

	snap, err := e.schedules.Snapshot(ctx, channelID)
	if err != nil {
		return err
	}
	schedule := snap.Schedule
	if schedule.Empty() {
		return ErrNothingAiring
	}

	programs := schedule.Next(e.now(), max(1, e.cfg.StreamPrograms))

	err = RenderStreamPlaylist(w, programs, StreamOptions{
		MediaBaseURL: e.cfg.MediaURL(),
		Sequence:     absoluteSequence(schedule, programs[0]),
	})
	metrics.ObserveGuideGeneration(documentStream, time.Since(started))
	return err
}

// absoluteSequence counts programs aired since the anchor, so the media
// sequence advances by one each time a program ends. Programs before the
// anchor count from the floored loop and clamp at zero.
func absoluteSequence(s *timeline.Schedule, p timeline.Program) uint64 {
	cycle := s.CycleLength()
	if cycle <= 0 {
		return uint64(p.SequenceIndex)
	}
	elapsed := p.StartTime.Sub(s.Anchor())
	loops := int64(elapsed / cycle)
	if elapsed%cycle < 0 {
		loops--
	}
	seq := loops*int64(s.Len()) + int64(p.SequenceIndex)
	if seq < 0 {
		return 0
	}
	return uint64(seq)
}

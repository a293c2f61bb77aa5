package guide

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	channelpkg "github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

// fakeCatalog is an in-memory catalog listing channels in insertion order
type fakeCatalog struct {
	mu        sync.Mutex
	order     []*models.Channel
	playlists map[uuid.UUID][]*models.ContentItem
}

func (c *fakeCatalog) add(name string, items ...*models.ContentItem) *models.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playlists == nil {
		c.playlists = make(map[uuid.UUID][]*models.ContentItem)
	}
	ch := models.NewChannel(len(c.order)+1, name)
	c.order = append(c.order, ch)
	c.playlists[ch.ID] = items
	return ch
}

// anchor pins a channel's persisted anchor so schedules are predictable
func (c *fakeCatalog) anchor(ch *models.Channel, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch.AnchorTime = &at
	ch.AnchorFingerprint = timeline.Fingerprint(c.playlists[ch.ID])
}

func (c *fakeCatalog) ListChannels(_ context.Context) ([]*models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Channel(nil), c.order...), nil
}

func (c *fakeCatalog) GetChannel(_ context.Context, id uuid.UUID) (*models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.order {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, channelpkg.ErrChannelNotFound
}

func (c *fakeCatalog) GetPlaylist(_ context.Context, id uuid.UUID) ([]*models.ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlists[id], nil
}

// fixedDurations resolves every item to the same length and counts prewarms
type fixedDurations struct {
	seconds  float64
	mu       sync.Mutex
	prewarms int
}

func (f *fixedDurations) ResolveAll(_ context.Context, items []*models.ContentItem) map[uuid.UUID]duration.Result {
	out := make(map[uuid.UUID]duration.Result, len(items))
	for _, it := range items {
		out[it.ID] = duration.Result{Seconds: f.seconds}
	}
	return out
}

func (f *fixedDurations) Prewarm(_ context.Context, items []*models.ContentItem) duration.WarmSummary {
	f.mu.Lock()
	f.prewarms++
	f.mu.Unlock()
	return duration.WarmSummary{Total: len(items), Cached: len(items)}
}

func testGuideConfig() config.GuideConfig {
	return config.GuideConfig{
		BaseURL:           "http://tv.local",
		WindowHours:       2,
		Timezone:          "UTC",
		GroupTitle:        "RetroGuide",
		GeneratorName:     "RetroGuide",
		DescriptionPrefix: "RetroGuide",
		IDSuffix:          "retroguide",
		StreamPrograms:    3,
	}
}

func setupExporter(t *testing.T) (*Exporter, *fakeCatalog, *fixedDurations) {
	t.Helper()

	catalog := &fakeCatalog{}
	durations := &fixedDurations{seconds: 600}
	timelines := timeline.NewTimelineService(catalog, durations, timeline.NewAnchorRegistry(nil), 50)

	exporter, err := NewExporter(catalog, timelines, testGuideConfig())
	require.NoError(t, err)
	return exporter, catalog, durations
}

func TestNewExporter_InvalidTimezone(t *testing.T) {
	cfg := testGuideConfig()
	cfg.Timezone = "Not/AZone"

	_, err := NewExporter(&fakeCatalog{}, nil, cfg)
	assert.Error(t, err)
}

func TestExporter_ChannelList_OmitsEmptyChannels(t *testing.T) {
	exporter, catalog, _ := setupExporter(t)
	full := catalog.add("Full", testItem("a"))
	catalog.add("Empty")

	var b strings.Builder
	require.NoError(t, exporter.ChannelList(context.Background(), &b))

	out := b.String()
	assert.Equal(t, 1, strings.Count(out, "#EXTINF"))
	assert.Contains(t, out, "http://tv.local/stream/"+full.ID.String())
	assert.NotContains(t, out, "Empty")
}

func TestExporter_Guide(t *testing.T) {
	exporter, catalog, _ := setupExporter(t)
	start := time.Now().UTC().Truncate(time.Second)
	catalog.anchor(catalog.add("First", testItem("a"), testItem("b")), start)
	catalog.add("Empty")
	catalog.anchor(catalog.add("Third", testItem("c")), start)

	var b bytes.Buffer
	stats, err := exporter.Guide(context.Background(), &b, start, start.Add(time.Hour))
	require.NoError(t, err)

	var doc tv
	require.NoError(t, xml.Unmarshal(b.Bytes(), &doc))

	require.Len(t, doc.Channels, 2)
	assert.Equal(t, "1.retroguide", doc.Channels[0].ID)
	assert.Equal(t, "3.retroguide", doc.Channels[1].ID)
	assert.Equal(t, stats.Channels, len(doc.Channels))
	assert.Equal(t, stats.Programmes, len(doc.Programmes))

	// 10 minute items over an hour anchored at start: 6 per channel
	assert.Equal(t, 12, stats.Programmes)
}

func TestExporter_Guide_InvalidWindow(t *testing.T) {
	exporter, _, _ := setupExporter(t)

	_, err := exporter.Guide(context.Background(), &bytes.Buffer{}, t0, t0.Add(-time.Second))
	assert.ErrorIs(t, err, timeline.ErrInvalidWindow)
}

func TestExporter_Stream(t *testing.T) {
	exporter, catalog, _ := setupExporter(t)
	ch := catalog.add("Stream", testItem("a"), testItem("b"))
	empty := catalog.add("Empty")
	ctx := context.Background()

	var b strings.Builder
	require.NoError(t, exporter.Stream(ctx, &b, ch.ID))
	out := b.String()
	assert.Equal(t, 3, strings.Count(out, "#EXTINF"))
	assert.Contains(t, out, "http://tv.local/media/media/a.mp4")

	err := exporter.Stream(ctx, &strings.Builder{}, empty.ID)
	assert.ErrorIs(t, err, ErrNothingAiring)

	err = exporter.Stream(ctx, &strings.Builder{}, uuid.New())
	assert.ErrorIs(t, err, channelpkg.ErrChannelNotFound)
}

func TestAbsoluteSequence(t *testing.T) {
	a, b := testItem("a"), testItem("b")
	s := timeline.NewSchedule(uuid.New(), t0, []timeline.Slot{
		{Item: a, Duration: time.Minute},
		{Item: b, Duration: time.Minute},
	})

	// Third loop, second item
	p := s.At(t0.Add(5*time.Minute + 10*time.Second)).Program
	assert.Equal(t, uint64(5), absoluteSequence(s, p))

	first := s.At(t0).Program
	assert.Equal(t, uint64(0), absoluteSequence(s, first))
}

func TestAbsoluteSequence_MonotonicAcrossAnchor(t *testing.T) {
	a, b := testItem("a"), testItem("b")
	s := timeline.NewSchedule(uuid.New(), t0, []timeline.Slot{
		{Item: a, Duration: time.Minute},
		{Item: b, Duration: time.Minute},
	})

	programs, err := s.Window(t0.Add(-5*time.Minute), t0.Add(3*time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, programs)

	var prev uint64
	for i, p := range programs {
		seq := absoluteSequence(s, p)
		if i > 0 {
			assert.GreaterOrEqual(t, seq, prev, "sequence at %s went backwards", p.StartTime)
		}
		if !p.StartTime.Before(t0) {
			want := uint64(p.StartTime.Sub(t0) / time.Minute)
			assert.Equal(t, want, seq)
		}
		prev = seq
	}

	// One program before the anchor clamps to zero
	before := s.At(t0.Add(-30 * time.Second)).Program
	assert.Equal(t, uint64(0), absoluteSequence(s, before))
}

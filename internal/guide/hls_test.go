package guide

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

func TestRenderStreamPlaylist(t *testing.T) {
	chID := uuid.New()
	first := models.NewContentItem("shows/Pilot Episode.mp4", "Pilot")
	second := models.NewContentItem("shows/Second.mp4", "Second")
	programs := []timeline.Program{
		testProgram(chID, first, t0, 1500*time.Second),
		testProgram(chID, second, t0.Add(1500*time.Second), 1320500*time.Millisecond),
	}

	var b strings.Builder
	err := RenderStreamPlaylist(&b, programs, StreamOptions{
		MediaBaseURL: "http://tv.local/media",
		Sequence:     42,
	})
	require.NoError(t, err)
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "#EXTM3U"))
	assert.Contains(t, out, "#EXT-X-MEDIA-SEQUENCE:42")
	assert.Contains(t, out, "#EXT-X-TARGETDURATION:1500")
	assert.Contains(t, out, "http://tv.local/media/shows/Pilot%20Episode.mp4")
	assert.Contains(t, out, "http://tv.local/media/shows/Second.mp4")
	assert.Contains(t, out, "#EXT-X-PROGRAM-DATE-TIME:2024-01-01T12:00:00Z")
	assert.Contains(t, out, "#EXT-X-PROGRAM-DATE-TIME:2024-01-01T12:25:00Z")
	assert.Equal(t, 1, strings.Count(out, "#EXT-X-DISCONTINUITY"))
	assert.Less(t, strings.Index(out, "Pilot"), strings.Index(out, "Second"))
}

func TestRenderStreamPlaylist_NothingAiring(t *testing.T) {
	var b strings.Builder
	err := RenderStreamPlaylist(&b, nil, StreamOptions{MediaBaseURL: "http://x"})
	assert.ErrorIs(t, err, ErrNothingAiring)
}

func TestSegmentURL(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative", path: "a/b.mp4", want: "http://x/media/a/b.mp4"},
		{name: "absolute", path: "/srv/a.mp4", want: "http://x/media/srv/a.mp4"},
		{name: "escaped", path: "My Show #1.mp4", want: "http://x/media/My%20Show%20%231.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SegmentURL("http://x/media", timeline.Program{Item: models.NewContentItem(tt.path, "t")})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SegmentURL("http://x", timeline.Program{})
	assert.Error(t, err)
}

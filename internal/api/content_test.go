package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/models"
)

func TestRegisterContent(t *testing.T) {
	env := newTestEnv(t)
	env.writeMediaFile(t, "shows/Night.Rider.S01E02.mkv")
	env.writeMediaFile(t, "shows/notes.txt")

	t.Run("Registers with a title from the filename", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/content", RegisterContentRequest{FilePath: "shows/Night.Rider.S01E02.mkv"})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		item := decode[models.ContentItem](t, w)
		assert.Equal(t, "Night Rider - S01E02", item.Title)
		assert.Equal(t, "shows/Night.Rider.S01E02.mkv", item.FilePath)
	})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "Duplicate path", body: RegisterContentRequest{FilePath: "shows/Night.Rider.S01E02.mkv"}, wantStatus: http.StatusConflict, wantError: "duplicate_content"},
		{name: "Unsupported format", body: RegisterContentRequest{FilePath: "shows/notes.txt"}, wantStatus: http.StatusBadRequest, wantError: "unsupported_format"},
		{name: "Missing file", body: RegisterContentRequest{FilePath: "shows/missing.mp4"}, wantStatus: http.StatusBadRequest, wantError: "unreadable_file"},
		{name: "Missing path", body: map[string]string{}, wantStatus: http.StatusBadRequest, wantError: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/content", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestListAndGetContent(t *testing.T) {
	env := newTestEnv(t)
	for range 3 {
		env.createContent(t, "Episode")
	}
	one := env.createContent(t, "Special")

	t.Run("Paginated list", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/content?limit=2&offset=1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ContentListResponse](t, w)
		assert.Len(t, resp.Items, 2)
		assert.Equal(t, int64(4), resp.Total)
		assert.Equal(t, 2, resp.Limit)
		assert.Equal(t, 1, resp.Offset)
	})

	t.Run("Limit capped", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/content?limit=5000", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, maxContentLimit, decode[ContentListResponse](t, w).Limit)
	})

	t.Run("Get by id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/content/"+one.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Special", decode[models.ContentItem](t, w).Title)
	})

	t.Run("Unknown id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/content/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestContentDuration(t *testing.T) {
	env := newTestEnv(t)
	item := env.createContent(t, "Feature")
	env.prober.set(item.FilePath, 5400)
	path := "/api/content/" + item.ID.String() + "/duration"

	w := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[DurationResponse](t, w)
	assert.InDelta(t, 5400, resp.DurationSeconds, 0.001)
	assert.False(t, resp.Estimated)

	// Cached: a changed file is not noticed until invalidated
	env.prober.set(item.FilePath, 5500)
	w = env.do(t, http.MethodGet, path, nil)
	assert.InDelta(t, 5400, decode[DurationResponse](t, w).DurationSeconds, 0.001)

	w = env.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, path, nil)
	assert.InDelta(t, 5500, decode[DurationResponse](t, w).DurationSeconds, 0.001)

	t.Run("Unknown content", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			w := env.do(t, method, "/api/content/"+uuid.NewString()+"/duration", nil)
			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})
}

func TestContentDuration_InvalidationMovesSchedule(t *testing.T) {
	env := newTestEnv(t)
	first := env.createContent(t, "First")
	second := env.createContent(t, "Second")
	ch := env.createChannel(t, "Loop", first, second)

	ctx := context.Background()
	before, err := env.timeline.Upcoming(ctx, ch.ID, 2)
	require.NoError(t, err)
	require.Len(t, before, 2)

	env.prober.set(first.FilePath, 1200)
	w := env.do(t, http.MethodDelete, "/api/content/"+first.ID.String()+"/duration", nil)
	require.Equal(t, http.StatusOK, w.Code)

	after, err := env.timeline.Upcoming(ctx, ch.ID, 2)
	require.NoError(t, err)
	require.Len(t, after, 2)

	assert.True(t, before[0].StartTime.Equal(after[0].StartTime), "the anchor does not move")
	assert.Equal(t, 1200*time.Second, after[0].Duration())
}

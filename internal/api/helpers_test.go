package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/guide"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

const testProbeSeconds = 600

// fakeProber returns a fixed length per path and testProbeSeconds otherwise
type fakeProber struct {
	mu        sync.Mutex
	durations map[string]float64
	calls     int
}

func (p *fakeProber) ProbeDuration(_ context.Context, filePath string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if d, ok := p.durations[filePath]; ok {
		return d, nil
	}
	return testProbeSeconds, nil
}

func (p *fakeProber) set(path string, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.durations[path] = seconds
}

// testEnv wires the full service stack against a temp database
type testEnv struct {
	router    *gin.Engine
	database  *db.DB
	repos     *db.Repositories
	library   string
	prober    *fakeProber
	resolver  *duration.Resolver
	warmer    *duration.Warmer
	timeline  *timeline.TimelineService
	publisher *guide.Publisher
}

func testGuideConfig() config.GuideConfig {
	return config.GuideConfig{
		BaseURL:           "http://tv.local:8080",
		WindowHours:       2,
		RefreshInterval:   time.Hour,
		Timezone:          "UTC",
		GroupTitle:        "RetroGuide",
		GeneratorName:     "RetroGuide",
		DescriptionPrefix: "RetroGuide",
		IDSuffix:          "retroguide",
		StreamPrograms:    3,
		MaxUpcoming:       20,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	repos := db.NewRepositories(database)

	library := t.TempDir()
	mediaCfg := config.MediaConfig{
		LibraryPath:      library,
		SupportedFormats: []string{"mp4", "mkv"},
	}

	prober := &fakeProber{durations: make(map[string]float64)}
	resolver := duration.NewResolver(duration.NewMemoryStore(), prober, duration.Options{RetryAfter: time.Minute})
	warmer := duration.NewWarmer(resolver)
	t.Cleanup(warmer.Stop)

	catalog := channel.NewCatalog(repos)
	anchors := timeline.NewAnchorRegistry(repos.Channels)
	timelineService := timeline.NewTimelineService(catalog, resolver, anchors, testGuideConfig().MaxUpcoming)

	channelService := channel.NewChannelService(repos, timelineService)
	playlistService := channel.NewPlaylistService(database, repos, timelineService)
	contentService := channel.NewContentService(repos, mediaCfg)

	exporter, err := guide.NewExporter(catalog, timelineService, testGuideConfig())
	require.NoError(t, err)
	publisher := guide.NewPublisher(exporter, resolver, 0)

	router := gin.New()
	apiGroup := router.Group("/api")
	SetupHealthRoutes(apiGroup, database, nil)
	SetupChannelRoutes(apiGroup, channelService, playlistService, resolver)
	SetupScheduleRoutes(apiGroup, timelineService, testGuideConfig().Window())
	SetupContentRoutes(apiGroup, contentService, resolver)
	SetupDurationRoutes(apiGroup, warmer, contentService)
	SetupGuideRoutes(router, apiGroup, exporter, publisher)

	return &testEnv{
		router:    router,
		database:  database,
		repos:     repos,
		library:   library,
		prober:    prober,
		resolver:  resolver,
		warmer:    warmer,
		timeline:  timelineService,
		publisher: publisher,
	}
}

// do performs a request with an optional JSON body
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) createContent(t *testing.T, title string) *models.ContentItem {
	t.Helper()

	item := models.NewContentItem("shows/"+uuid.NewString()+".mp4", title)
	require.NoError(t, e.repos.Content.Create(context.Background(), item))
	return item
}

func (e *testEnv) writeMediaFile(t *testing.T, name string) {
	t.Helper()

	path := filepath.Join(e.library, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not really video"), 0o644))
}

func (e *testEnv) createChannel(t *testing.T, name string, items ...*models.ContentItem) *models.Channel {
	t.Helper()

	ctx := context.Background()
	number, err := e.repos.Channels.NextNumber(ctx)
	require.NoError(t, err)
	ch := models.NewChannel(number, name)
	require.NoError(t, e.repos.Channels.Create(ctx, ch))

	for i, item := range items {
		require.NoError(t, e.repos.PlaylistItems.Create(ctx, models.NewPlaylistItem(ch.ID, item.ID, i)))
	}
	return ch
}

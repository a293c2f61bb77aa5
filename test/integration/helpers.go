//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/server"
)

const fallbackSeconds = 180

// testServer runs the complete router against a temp database and media library.
// The library holds placeholder files, so every probe fails and items run on
// the fallback length.
type testServer struct {
	*httptest.Server
	library string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	library := t.TempDir()
	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080, Host: "127.0.0.1", ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
		Logging: config.LoggingConfig{Level: "info"},
		Media:   config.MediaConfig{LibraryPath: library, SupportedFormats: []string{"mp4", "mkv"}},
		Duration: config.DurationConfig{
			FallbackSeconds:  fallbackSeconds,
			ProbeTimeout:     2 * time.Second,
			RetryAfter:       time.Minute,
			ProbeWorkers:     2,
			ProbesPerSecond:  50,
			ProbeBurst:       10,
			BreakerThreshold: 100,
			BreakerReset:     time.Minute,
			CacheBackend:     config.CacheBackendMemory,
		},
		Guide: config.GuideConfig{
			BaseURL:           "http://tv.local:8080",
			WindowHours:       1,
			RefreshInterval:   time.Hour,
			Timezone:          "UTC",
			GroupTitle:        "RetroGuide",
			GeneratorName:     "RetroGuide",
			DescriptionPrefix: "RetroGuide",
			IDSuffix:          "retroguide",
			StreamPrograms:    3,
			MaxUpcoming:       20,
		},
	}

	database, err := db.Open(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	services, err := server.NewServices(cfg, database)
	require.NoError(t, err)
	t.Cleanup(services.Close)

	ts := httptest.NewServer(server.New(cfg, services).Router())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, library: library}
}

func (s *testServer) writeMediaFile(t *testing.T, name string) {
	t.Helper()

	path := filepath.Join(s.library, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o644))
}

// call sends a request and decodes a JSON response into out when out is not nil
func (s *testServer) call(t *testing.T, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *testServer) text(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	resp, err := s.Client().Get(s.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

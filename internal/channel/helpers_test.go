package channel

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// recordingObserver collects PlaylistChanged notifications
type recordingObserver struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (o *recordingObserver) PlaylistChanged(_ context.Context, channelID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, channelID)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

// setupTestDB opens a migrated sqlite database in a temp dir
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return database, db.NewRepositories(database)
}

func createTestContent(t *testing.T, repos *db.Repositories, title string) *models.ContentItem {
	t.Helper()

	item := models.NewContentItem("/media/"+uuid.NewString()+".mp4", title)
	require.NoError(t, repos.Content.Create(context.Background(), item))
	return item
}

func createTestChannel(t *testing.T, repos *db.Repositories, name string) *models.Channel {
	t.Helper()

	number, err := repos.Channels.NextNumber(context.Background())
	require.NoError(t, err)
	ch := models.NewChannel(number, name)
	require.NoError(t, repos.Channels.Create(context.Background(), ch))
	return ch
}

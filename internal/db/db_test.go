package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/models"
)

func openTest(t *testing.T, opts Options) *DB {
	t.Helper()
	database, err := OpenWithOptions(filepath.Join(t.TempDir(), "test.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestOpenWithOptions_JournalMode(t *testing.T) {
	tests := []struct {
		name string
		wal  bool
		want string
	}{
		{name: "wal enabled", wal: true, want: "wal"},
		{name: "wal disabled", wal: false, want: "delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := openTest(t, Options{ConnectionTimeout: time.Second, EnableWAL: tt.wal})

			var mode string
			require.NoError(t, database.Raw("PRAGMA journal_mode").Scan(&mode).Error)
			assert.Equal(t, tt.want, strings.ToLower(mode))
			assert.NoError(t, database.Health(context.Background()))
		})
	}
}

func TestChannelRepository_NextNumber(t *testing.T) {
	database := openTest(t, DefaultOptions())
	repos := NewRepositories(database)
	ctx := context.Background()

	n, err := repos.Channels.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	first := models.NewChannel(1, "One")
	second := models.NewChannel(2, "Two")
	require.NoError(t, repos.Channels.Create(ctx, first))
	require.NoError(t, repos.Channels.Create(ctx, second))
	require.NoError(t, repos.Channels.Delete(ctx, first.ID))

	n, err = repos.Channels.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestContentRepository_Errors(t *testing.T) {
	database := openTest(t, DefaultOptions())
	repos := NewRepositories(database)
	ctx := context.Background()

	item := models.NewContentItem("shows/pilot.mp4", "Pilot")
	require.NoError(t, repos.Content.Create(ctx, item))

	err := repos.Content.Create(ctx, models.NewContentItem("shows/pilot.mp4", "Again"))
	assert.True(t, IsDuplicate(err))

	_, err = repos.Content.GetByID(ctx, uuid.New())
	assert.True(t, IsNotFound(err))

	got, err := repos.Content.GetByPath(ctx, "shows/pilot.mp4")
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}

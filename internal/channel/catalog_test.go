package channel

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	database, repos := setupTestDB(t)
	catalog := NewCatalog(repos)
	playlists := NewPlaylistService(database, repos, nil)
	ctx := context.Background()

	news := createTestChannel(t, repos, "News")
	empty := createTestChannel(t, repos, "Empty")
	a := createTestContent(t, repos, "A")
	b := createTestContent(t, repos, "B")

	for _, id := range []uuid.UUID{a.ID, b.ID, a.ID} {
		_, err := playlists.AddToPlaylist(ctx, news.ID, id, nil)
		require.NoError(t, err)
	}

	t.Run("list in number order", func(t *testing.T) {
		channels, err := catalog.ListChannels(ctx)
		require.NoError(t, err)
		require.Len(t, channels, 2)
		assert.Equal(t, news.ID, channels[0].ID)
		assert.Equal(t, empty.ID, channels[1].ID)
	})

	t.Run("get channel", func(t *testing.T) {
		ch, err := catalog.GetChannel(ctx, news.ID)
		require.NoError(t, err)
		assert.Equal(t, "News", ch.Name)

		_, err = catalog.GetChannel(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrChannelNotFound)
	})

	t.Run("playlist keeps order and repeats", func(t *testing.T) {
		items, err := catalog.GetPlaylist(ctx, news.ID)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, a.ID, items[0].ID)
		assert.Equal(t, b.ID, items[1].ID)
		assert.Equal(t, a.ID, items[2].ID)
	})

	t.Run("empty playlist", func(t *testing.T) {
		items, err := catalog.GetPlaylist(ctx, empty.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

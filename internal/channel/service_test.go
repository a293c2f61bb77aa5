package channel

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T) (*ChannelService, *recordingObserver) {
	t.Helper()

	_, repos := setupTestDB(t)
	observer := &recordingObserver{}
	return NewChannelService(repos, observer), observer
}

func TestCreateChannel_Success(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	icon := "icon.png"

	channel, err := service.CreateChannel(ctx, "  Cartoons  ", &icon)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, channel.ID)
	assert.Equal(t, "Cartoons", channel.Name)
	assert.Equal(t, 1, channel.Number)
	assert.Equal(t, &icon, channel.Icon)
	assert.Nil(t, channel.AnchorTime)
	assert.False(t, channel.CreatedAt.IsZero())
}

func TestCreateChannel_AssignsIncreasingNumbers(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	first, err := service.CreateChannel(ctx, "One", nil)
	require.NoError(t, err)
	second, err := service.CreateChannel(ctx, "Two", nil)
	require.NoError(t, err)
	require.NoError(t, service.DeleteChannel(ctx, first.ID))

	third, err := service.CreateChannel(ctx, "Three", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 3, third.Number)
}

func TestCreateChannel_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrInvalidChannelName},
		{name: "whitespace", input: "   ", wantErr: ErrInvalidChannelName},
		{name: "too long", input: strings.Repeat("x", 256), wantErr: ErrInvalidChannelName},
		{name: "duplicate", input: "Existing", wantErr: ErrDuplicateChannelName},
		{name: "duplicate case insensitive", input: "existing", wantErr: ErrDuplicateChannelName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := setupTestService(t)
			ctx := context.Background()
			_, err := service.CreateChannel(ctx, "Existing", nil)
			require.NoError(t, err)

			_, err = service.CreateChannel(ctx, tt.input, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.GetByID(context.Background(), uuid.New())
	assert.True(t, IsChannelNotFound(err))
}

func TestList_OrderedByNumber(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		_, err := service.CreateChannel(ctx, name, nil)
		require.NoError(t, err)
	}

	channels, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 3)
	assert.Equal(t, "Zulu", channels[0].Name)
	assert.Equal(t, "Alpha", channels[1].Name)
	assert.Equal(t, "Mike", channels[2].Name)
}

func TestUpdateChannel(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	channel, err := service.CreateChannel(ctx, "Original", nil)
	require.NoError(t, err)
	_, err = service.CreateChannel(ctx, "Taken", nil)
	require.NoError(t, err)

	icon := "new.png"
	updated, err := service.UpdateChannel(ctx, channel.ID, "Renamed", &icon)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, channel.Number, updated.Number)

	fetched, err := service.GetByID(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Name)
	require.NotNil(t, fetched.Icon)
	assert.Equal(t, icon, *fetched.Icon)

	// Case change of its own name is allowed
	_, err = service.UpdateChannel(ctx, channel.ID, "RENAMED", nil)
	assert.NoError(t, err)

	_, err = service.UpdateChannel(ctx, channel.ID, "taken", nil)
	assert.True(t, IsDuplicateName(err))

	_, err = service.UpdateChannel(ctx, uuid.New(), "Whatever", nil)
	assert.True(t, IsChannelNotFound(err))
}

func TestDeleteChannel_NotifiesObserver(t *testing.T) {
	service, observer := setupTestService(t)
	ctx := context.Background()

	channel, err := service.CreateChannel(ctx, "Doomed", nil)
	require.NoError(t, err)

	require.NoError(t, service.DeleteChannel(ctx, channel.ID))
	assert.Equal(t, []uuid.UUID{channel.ID}, observer.calls)

	_, err = service.GetByID(ctx, channel.ID)
	assert.True(t, IsChannelNotFound(err))

	err = service.DeleteChannel(ctx, channel.ID)
	assert.True(t, IsChannelNotFound(err))
	assert.Equal(t, 1, observer.count())
}

func TestHasEmptyPlaylist(t *testing.T) {
	database, repos := setupTestDB(t)
	service := NewChannelService(repos, nil)
	playlists := NewPlaylistService(database, repos, nil)
	ctx := context.Background()

	channel, err := service.CreateChannel(ctx, "Check", nil)
	require.NoError(t, err)

	empty, err := service.HasEmptyPlaylist(ctx, channel.ID)
	require.NoError(t, err)
	assert.True(t, empty)

	item := createTestContent(t, repos, "Show")
	_, err = playlists.AddToPlaylist(ctx, channel.ID, item.ID, nil)
	require.NoError(t, err)

	empty, err = service.HasEmptyPlaylist(ctx, channel.ID)
	require.NoError(t, err)
	assert.False(t, empty)
}

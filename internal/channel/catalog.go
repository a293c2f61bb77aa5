package channel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// CompositionObserver is told when a channel's playlist may have changed
// composition, including when the channel itself was deleted
type CompositionObserver interface {
	PlaylistChanged(ctx context.Context, channelID uuid.UUID)
}

// Catalog is the read-only view of channels and their playlists used by
// scheduling and guide export
type Catalog struct {
	repos *db.Repositories
}

// NewCatalog creates a catalog over the database repositories
func NewCatalog(repos *db.Repositories) *Catalog {
	return &Catalog{repos: repos}
}

// ListChannels returns every channel in catalog order (ascending channel number)
func (c *Catalog) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	channels, err := c.repos.Channels.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// GetChannel returns a channel by id or ErrChannelNotFound
func (c *Catalog) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	ch, err := c.repos.Channels.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

// GetPlaylist returns the channel's content items in playlist order.
// The same item appears once per position it occupies.
func (c *Catalog) GetPlaylist(ctx context.Context, id uuid.UUID) ([]*models.ContentItem, error) {
	entries, err := c.repos.PlaylistItems.GetWithContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	items := make([]*models.ContentItem, 0, len(entries))
	for _, entry := range entries {
		if entry.ContentItem == nil {
			logger.Log.Warn().
				Str("channel_id", id.String()).
				Str("playlist_item_id", entry.ID.String()).
				Msg("Playlist entry references missing content item")
			continue
		}
		items = append(items, entry.ContentItem)
	}
	return items, nil
}

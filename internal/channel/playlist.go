package channel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
	"gorm.io/gorm"
)

// PlaylistService handles playlist mutations. Every successful mutation is
// reported to the composition observer so schedules can re-anchor.
type PlaylistService struct {
	repos    *db.Repositories
	db       *db.DB
	observer CompositionObserver
}

// NewPlaylistService creates a new playlist service instance. observer may be nil.
func NewPlaylistService(database *db.DB, repos *db.Repositories, observer CompositionObserver) *PlaylistService {
	return &PlaylistService{
		repos:    repos,
		db:       database,
		observer: observer,
	}
}

// AddToPlaylist inserts a content item into a channel's playlist. Items at or
// after position shift down by one; a nil position appends.
func (s *PlaylistService) AddToPlaylist(ctx context.Context, channelID, contentID uuid.UUID, position *int) (*models.PlaylistItem, error) {
	if position != nil && *position < 0 {
		logger.Log.Warn().
			Str("channel_id", channelID.String()).
			Str("content_item_id", contentID.String()).
			Int("position", *position).
			Msg("Add to playlist failed: invalid position")
		return nil, fmt.Errorf("failed to add content to playlist: %w", ErrInvalidPosition)
	}

	if err := s.ensureChannel(ctx, channelID); err != nil {
		return nil, fmt.Errorf("failed to add content to playlist: %w", err)
	}

	if _, err := s.repos.Content.GetByID(ctx, contentID); err != nil {
		if db.IsNotFound(err) {
			logger.Log.Warn().
				Str("content_item_id", contentID.String()).
				Msg("Add to playlist failed: content item not found")
			return nil, fmt.Errorf("failed to add content to playlist: %w", ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to add content to playlist: %w", err)
	}

	var newItem *models.PlaylistItem
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		target, err := insertPosition(tx, channelID, position)
		if err != nil {
			return err
		}

		result := tx.Model(&models.PlaylistItem{}).
			Where("channel_id = ? AND position >= ?", channelID.String(), target).
			Update("position", gorm.Expr("position + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to shift playlist positions: %w", result.Error)
		}

		newItem = models.NewPlaylistItem(channelID, contentID, target)
		if err := tx.Create(newItem).Error; err != nil {
			return fmt.Errorf("failed to create playlist item: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("content_item_id", contentID.String()).
			Msg("Failed to add content to playlist")
		return nil, fmt.Errorf("failed to add content to playlist: %w", err)
	}

	s.notify(ctx, channelID)

	logger.Log.Info().
		Str("playlist_item_id", newItem.ID.String()).
		Str("channel_id", channelID.String()).
		Str("content_item_id", contentID.String()).
		Int("position", newItem.Position).
		Msg("Content added to playlist")

	return newItem, nil
}

// BulkAddToPlaylist appends several content items to a playlist in one transaction
func (s *PlaylistService) BulkAddToPlaylist(ctx context.Context, channelID uuid.UUID, contentIDs []uuid.UUID) ([]*models.PlaylistItem, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	if err := s.ensureChannel(ctx, channelID); err != nil {
		return nil, fmt.Errorf("failed to bulk add to playlist: %w", err)
	}

	existsMap, err := s.repos.Content.ExistsByIDs(ctx, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk add to playlist: %w", err)
	}
	for _, id := range contentIDs {
		if !existsMap[id] {
			return nil, fmt.Errorf("failed to bulk add to playlist: content item %s: %w", id, ErrContentNotFound)
		}
	}

	var newItems []*models.PlaylistItem
	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		start, err := insertPosition(tx, channelID, nil)
		if err != nil {
			return err
		}

		newItems = make([]*models.PlaylistItem, len(contentIDs))
		for i, id := range contentIDs {
			newItems[i] = models.NewPlaylistItem(channelID, id, start+i)
		}
		if err := tx.Create(&newItems).Error; err != nil {
			return fmt.Errorf("failed to create playlist items: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Int("item_count", len(contentIDs)).
			Msg("Failed to bulk add content to playlist")
		return nil, fmt.Errorf("failed to bulk add to playlist: %w", err)
	}

	s.notify(ctx, channelID)

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Int("item_count", len(newItems)).
		Msg("Content bulk added to playlist")

	return newItems, nil
}

// RemoveFromPlaylist removes a playlist entry of channelID and closes the gap
func (s *PlaylistService) RemoveFromPlaylist(ctx context.Context, channelID, itemID uuid.UUID) error {
	item, err := s.repos.PlaylistItems.GetByID(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("failed to remove from playlist: %w", ErrPlaylistItemNotFound)
		}
		return fmt.Errorf("failed to remove from playlist: %w", err)
	}
	if item.ChannelID != channelID {
		return fmt.Errorf("failed to remove from playlist: %w", ErrPlaylistItemNotFound)
	}

	err = s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Where("id = ?", itemID.String()).Delete(&models.PlaylistItem{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete playlist item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPlaylistItemNotFound
		}

		result = tx.Model(&models.PlaylistItem{}).
			Where("channel_id = ? AND position > ?", channelID.String(), item.Position).
			Update("position", gorm.Expr("position - 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to reorder playlist items: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("item_id", itemID.String()).
			Str("channel_id", channelID.String()).
			Msg("Failed to remove from playlist")
		return fmt.Errorf("failed to remove from playlist: %w", err)
	}

	s.notify(ctx, channelID)

	logger.Log.Info().
		Str("item_id", itemID.String()).
		Str("channel_id", channelID.String()).
		Int("position", item.Position).
		Msg("Item removed from playlist")

	return nil
}

// ReorderPlaylist applies new positions to playlist entries atomically
func (s *PlaylistService) ReorderPlaylist(ctx context.Context, channelID uuid.UUID, items []db.ReorderItem) error {
	for _, item := range items {
		if item.Position < 0 {
			return fmt.Errorf("failed to reorder playlist: %w", ErrInvalidPosition)
		}

		existing, err := s.repos.PlaylistItems.GetByID(ctx, item.ID)
		if err != nil {
			if db.IsNotFound(err) {
				return fmt.Errorf("failed to reorder playlist: %w", ErrPlaylistItemNotFound)
			}
			return fmt.Errorf("failed to reorder playlist: %w", err)
		}
		if existing.ChannelID != channelID {
			logger.Log.Warn().
				Str("item_id", item.ID.String()).
				Str("expected_channel_id", channelID.String()).
				Str("actual_channel_id", existing.ChannelID.String()).
				Msg("Reorder failed: item does not belong to channel")
			return fmt.Errorf("failed to reorder playlist: item %s: %w", item.ID, ErrPlaylistItemNotFound)
		}
	}

	if err := s.repos.PlaylistItems.Reorder(ctx, channelID, items); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Int("item_count", len(items)).
			Msg("Failed to reorder playlist")
		return fmt.Errorf("failed to reorder playlist: %w", err)
	}

	s.notify(ctx, channelID)

	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Int("item_count", len(items)).
		Msg("Playlist reordered")

	return nil
}

// GetPlaylist retrieves all playlist entries for a channel with content details
func (s *PlaylistService) GetPlaylist(ctx context.Context, channelID uuid.UUID) ([]*models.PlaylistItem, error) {
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	items, err := s.repos.PlaylistItems.GetWithContent(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}
	return items, nil
}

func (s *PlaylistService) ensureChannel(ctx context.Context, channelID uuid.UUID) error {
	if _, err := s.repos.Channels.GetByID(ctx, channelID); err != nil {
		if db.IsNotFound(err) {
			return ErrChannelNotFound
		}
		return err
	}
	return nil
}

func (s *PlaylistService) notify(ctx context.Context, channelID uuid.UUID) {
	if s.observer != nil {
		s.observer.PlaylistChanged(ctx, channelID)
	}
}

// insertPosition returns position, or the slot after the last entry when nil
func insertPosition(tx *gorm.DB, channelID uuid.UUID, position *int) (int, error) {
	if position != nil {
		return *position, nil
	}
	var last *int
	err := tx.Model(&models.PlaylistItem{}).
		Where("channel_id = ?", channelID.String()).
		Select("MAX(position)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find playlist end: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	return *last + 1, nil
}

package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

const maxChannelNameLength = 255

// ChannelService handles business logic for channel operations
//
//nolint:revive // Service name matches established patterns in codebase
type ChannelService struct {
	repos    *db.Repositories
	observer CompositionObserver
}

// NewChannelService creates a new channel service instance.
// observer may be nil.
func NewChannelService(repos *db.Repositories, observer CompositionObserver) *ChannelService {
	return &ChannelService{
		repos:    repos,
		observer: observer,
	}
}

// CreateChannel creates a new channel with the next free channel number
func (s *ChannelService) CreateChannel(ctx context.Context, name string, icon *string) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := s.validateNameUniqueness(ctx, name, uuid.Nil); err != nil {
		logger.Log.Warn().
			Str("name", name).
			Msg("Channel creation failed: duplicate name")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	number, err := s.repos.Channels.NextNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	channel := models.NewChannel(number, name)
	channel.Icon = icon

	if err := s.repos.Channels.Create(ctx, channel); err != nil {
		if db.IsDuplicate(err) {
			return nil, fmt.Errorf("failed to create channel: %w", ErrDuplicateChannelName)
		}
		logger.Log.Error().
			Err(err).
			Str("name", name).
			Msg("Failed to create channel in database")
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", channel.ID.String()).
		Int("number", channel.Number).
		Str("name", channel.Name).
		Msg("Channel created successfully")

	return channel, nil
}

// GetByID retrieves a channel by its ID
func (s *ChannelService) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	channel, err := s.repos.Channels.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrChannelNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to get channel by ID")
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return channel, nil
}

// List retrieves all channels in channel number order
func (s *ChannelService) List(ctx context.Context) ([]*models.Channel, error) {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	return channels, nil
}

// UpdateChannel renames a channel or changes its icon.
// The channel number and anchor are not editable here.
func (s *ChannelService) UpdateChannel(ctx context.Context, id uuid.UUID, name string, icon *string) (*models.Channel, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}

	if !strings.EqualFold(existing.Name, name) {
		if err := s.validateNameUniqueness(ctx, name, id); err != nil {
			logger.Log.Warn().
				Str("channel_id", id.String()).
				Str("name", name).
				Msg("Channel update failed: duplicate name")
			return nil, fmt.Errorf("failed to update channel: %w", err)
		}
	}

	existing.Name = name
	existing.Icon = icon
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repos.Channels.Update(ctx, existing); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to update channel in database")
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}

	logger.Log.Info().
		Str("channel_id", id.String()).
		Str("name", existing.Name).
		Msg("Channel updated successfully")

	return existing, nil
}

// DeleteChannel deletes a channel and its playlist
func (s *ChannelService) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	// Playlist items cascade in the database
	if err := s.repos.Channels.Delete(ctx, id); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to delete channel from database")
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	if s.observer != nil {
		s.observer.PlaylistChanged(ctx, id)
	}

	logger.Log.Info().
		Str("channel_id", id.String()).
		Msg("Channel deleted successfully")

	return nil
}

// HasEmptyPlaylist checks if a channel has an empty playlist
func (s *ChannelService) HasEmptyPlaylist(ctx context.Context, channelID uuid.UUID) (bool, error) {
	items, err := s.repos.PlaylistItems.GetByChannelID(ctx, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to check playlist: %w", err)
	}
	return len(items) == 0, nil
}

func validateName(name string) error {
	if name == "" || len(name) > maxChannelNameLength {
		return ErrInvalidChannelName
	}
	return nil
}

// validateNameUniqueness checks if a channel name is unique (case-insensitive)
// excludeID allows excluding a specific channel ID (for updates)
func (s *ChannelService) validateNameUniqueness(ctx context.Context, name string, excludeID uuid.UUID) error {
	channels, err := s.repos.Channels.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to validate name uniqueness: %w", err)
	}

	for _, channel := range channels {
		if channel.ID == excludeID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(channel.Name), name) {
			return ErrDuplicateChannelName
		}
	}

	return nil
}

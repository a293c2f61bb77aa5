package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// Request/Response DTOs

// CreateChannelRequest represents a request to create a new channel
type CreateChannelRequest struct {
	Name string  `json:"name" binding:"required"`
	Icon *string `json:"icon,omitempty"`
}

// UpdateChannelRequest represents a request to update channel metadata (partial update)
type UpdateChannelRequest struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID         string     `json:"id"`
	Number     int        `json:"number"`
	Name       string     `json:"name"`
	Icon       *string    `json:"icon,omitempty"`
	AnchorTime *time.Time `json:"anchor_time,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ChannelListResponse represents a list of channels
type ChannelListResponse struct {
	Channels []*ChannelResponse `json:"channels"`
}

// Playlist DTOs

// AddToPlaylistRequest represents a request to add a content item to a playlist.
// Position is optional; omitting it appends.
type AddToPlaylistRequest struct {
	ContentItemID string `json:"content_item_id" binding:"required"`
	Position      *int   `json:"position,omitempty"`
}

// BulkAddToPlaylistRequest appends several content items in order
type BulkAddToPlaylistRequest struct {
	ContentItemIDs []string `json:"content_item_ids" binding:"required,min=1"`
}

// ReorderPlaylistRequest represents a request to reorder playlist items
type ReorderPlaylistRequest struct {
	Items []ReorderItem `json:"items" binding:"required,min=1"`
}

// ReorderItem represents an item position in reorder request
type ReorderItem struct {
	ItemID   string `json:"item_id" binding:"required"`
	Position int    `json:"position"`
}

// PlaylistItemResponse represents a playlist item with embedded content details
type PlaylistItemResponse struct {
	ID              string              `json:"id"`
	ChannelID       string              `json:"channel_id"`
	ContentItemID   string              `json:"content_item_id"`
	Position        int                 `json:"position"`
	CreatedAt       time.Time           `json:"created_at"`
	ContentItem     *models.ContentItem `json:"content_item,omitempty"`
	DurationSeconds *float64            `json:"duration_seconds,omitempty"`
	Estimated       bool                `json:"estimated,omitempty"`
}

// PlaylistResponse represents a channel's playlist
type PlaylistResponse struct {
	Items []*PlaylistItemResponse `json:"items"`
	// TotalDuration is the loop length in seconds, present when durations are resolved
	TotalDuration *float64 `json:"total_duration_seconds,omitempty"`
}

// DurationResolver resolves a batch of content items in one snapshot
type DurationResolver interface {
	ResolveAll(ctx context.Context, items []*models.ContentItem) map[uuid.UUID]duration.Result
}

// ChannelHandler handles channel-related API requests
type ChannelHandler struct {
	channelService  *channel.ChannelService
	playlistService *channel.PlaylistService
	durations       DurationResolver
}

// NewChannelHandler creates a new channel handler instance. durations may be
// nil, in which case playlists are returned without lengths.
func NewChannelHandler(channelService *channel.ChannelService, playlistService *channel.PlaylistService, durations DurationResolver) *ChannelHandler {
	return &ChannelHandler{
		channelService:  channelService,
		playlistService: playlistService,
		durations:       durations,
	}
}

// toChannelResponse converts a channel model to API response format
func toChannelResponse(ch *models.Channel) *ChannelResponse {
	return &ChannelResponse{
		ID:         ch.ID.String(),
		Number:     ch.Number,
		Name:       ch.Name,
		Icon:       ch.Icon,
		AnchorTime: ch.AnchorTime,
		CreatedAt:  ch.CreatedAt,
		UpdatedAt:  ch.UpdatedAt,
	}
}

// toPlaylistItemResponse converts a playlist item model to API response format
func toPlaylistItemResponse(item *models.PlaylistItem) *PlaylistItemResponse {
	return &PlaylistItemResponse{
		ID:            item.ID.String(),
		ChannelID:     item.ChannelID.String(),
		ContentItemID: item.ContentItemID.String(),
		Position:      item.Position,
		CreatedAt:     item.CreatedAt,
		ContentItem:   item.ContentItem,
	}
}

// writeChannelError maps channel service errors onto responses
func writeChannelError(c *gin.Context, err error, fallbackCode, fallbackMessage string) {
	switch {
	case errors.Is(err, channel.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Channel not found",
		})
	case errors.Is(err, channel.ErrContentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "content_not_found",
			Message: "Content item not found",
		})
	case errors.Is(err, channel.ErrPlaylistItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "item_not_found",
			Message: "Playlist item not found in this channel",
		})
	case errors.Is(err, channel.ErrDuplicateChannelName):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_name",
			Message: "A channel with this name already exists",
		})
	case errors.Is(err, channel.ErrInvalidChannelName):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_name",
			Message: err.Error(),
		})
	case errors.Is(err, channel.ErrInvalidPosition):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_position",
			Message: "Position must be non-negative",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   fallbackCode,
			Message: fallbackMessage,
		})
	}
}

// CreateChannel handles POST /api/channels
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	newChannel, err := h.channelService.CreateChannel(ctx, req.Name, req.Icon)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("name", req.Name).
			Msg("Failed to create channel")
		writeChannelError(c, err, "create_failed", "Failed to create channel")
		return
	}

	c.JSON(http.StatusCreated, toChannelResponse(newChannel))
}

// ListChannels handles GET /api/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	channels, err := h.channelService.List(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list channels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to retrieve channels",
		})
		return
	}

	response := ChannelListResponse{
		Channels: make([]*ChannelResponse, 0, len(channels)),
	}
	for _, ch := range channels {
		response.Channels = append(response.Channels, toChannelResponse(ch))
	}

	c.JSON(http.StatusOK, response)
}

// GetChannel handles GET /api/channels/:id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ch, err := h.channelService.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, channel.ErrChannelNotFound) {
			logger.Log.Error().
				Err(err).
				Str("channel_id", id.String()).
				Msg("Failed to get channel")
		}
		writeChannelError(c, err, "retrieval_failed", "Failed to retrieve channel")
		return
	}

	c.JSON(http.StatusOK, toChannelResponse(ch))
}

// UpdateChannel handles PUT /api/channels/:id
func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.channelService.GetByID(ctx, id)
	if err != nil {
		writeChannelError(c, err, "update_failed", "Failed to update channel")
		return
	}

	name := existing.Name
	if req.Name != nil {
		name = *req.Name
	}
	icon := existing.Icon
	if req.Icon != nil {
		icon = req.Icon
		if *req.Icon == "" {
			icon = nil
		}
	}

	updated, err := h.channelService.UpdateChannel(ctx, id, name, icon)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", id.String()).
			Msg("Failed to update channel")
		writeChannelError(c, err, "update_failed", "Failed to update channel")
		return
	}

	c.JSON(http.StatusOK, toChannelResponse(updated))
}

// DeleteChannel handles DELETE /api/channels/:id
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.channelService.DeleteChannel(ctx, id); err != nil {
		if !errors.Is(err, channel.ErrChannelNotFound) {
			logger.Log.Error().
				Err(err).
				Str("channel_id", id.String()).
				Msg("Failed to delete channel")
		}
		writeChannelError(c, err, "delete_failed", "Failed to delete channel")
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Channel deleted successfully",
	})
}

// GetPlaylist handles GET /api/channels/:id/playlist
func (h *ChannelHandler) GetPlaylist(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	items, err := h.playlistService.GetPlaylist(ctx, id)
	if err != nil {
		if !errors.Is(err, channel.ErrChannelNotFound) {
			logger.Log.Error().
				Err(err).
				Str("channel_id", id.String()).
				Msg("Failed to get playlist")
		}
		writeChannelError(c, err, "retrieval_failed", "Failed to retrieve playlist")
		return
	}

	response := PlaylistResponse{
		Items: make([]*PlaylistItemResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, toPlaylistItemResponse(item))
	}
	if h.durations != nil {
		h.attachDurations(ctx, items, &response)
	}

	c.JSON(http.StatusOK, response)
}

// attachDurations resolves every item's length once and fills in the loop total
func (h *ChannelHandler) attachDurations(ctx context.Context, items []*models.PlaylistItem, response *PlaylistResponse) {
	content := make([]*models.ContentItem, 0, len(items))
	for _, item := range items {
		if item.ContentItem != nil {
			content = append(content, item.ContentItem)
		}
	}
	results := h.durations.ResolveAll(ctx, content)

	var total float64
	for _, resp := range response.Items {
		if resp.ContentItem == nil {
			continue
		}
		result, ok := results[resp.ContentItem.ID]
		if !ok {
			continue
		}
		seconds := result.Seconds
		resp.DurationSeconds = &seconds
		resp.Estimated = result.Estimated
		total += seconds
	}
	response.TotalDuration = &total
}

// AddToPlaylist handles POST /api/channels/:id/playlist
func (h *ChannelHandler) AddToPlaylist(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	var req AddToPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	contentID, err := uuid.Parse(req.ContentItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_content_id",
			Message: "Invalid content item ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	item, err := h.playlistService.AddToPlaylist(ctx, channelID, contentID, req.Position)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("content_item_id", contentID.String()).
			Msg("Failed to add content to playlist")
		writeChannelError(c, err, "add_failed", "Failed to add content to playlist")
		return
	}

	c.JSON(http.StatusCreated, toPlaylistItemResponse(item))
}

// BulkAddToPlaylist handles POST /api/channels/:id/playlist/bulk
func (h *ChannelHandler) BulkAddToPlaylist(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	var req BulkAddToPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	contentIDs := make([]uuid.UUID, 0, len(req.ContentItemIDs))
	for _, raw := range req.ContentItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_content_id",
				Message: "Invalid content item ID format: " + raw,
			})
			return
		}
		contentIDs = append(contentIDs, id)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	items, err := h.playlistService.BulkAddToPlaylist(ctx, channelID, contentIDs)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Int("count", len(contentIDs)).
			Msg("Failed to bulk add content to playlist")
		writeChannelError(c, err, "add_failed", "Failed to add content to playlist")
		return
	}

	response := PlaylistResponse{
		Items: make([]*PlaylistItemResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, toPlaylistItemResponse(item))
	}

	c.JSON(http.StatusCreated, response)
}

// RemoveFromPlaylist handles DELETE /api/channels/:id/playlist/:item_id
func (h *ChannelHandler) RemoveFromPlaylist(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(c, "item_id", "invalid_item_id", "Invalid playlist item ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.playlistService.RemoveFromPlaylist(ctx, channelID, itemID); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Str("item_id", itemID.String()).
			Msg("Failed to remove item from playlist")
		writeChannelError(c, err, "remove_failed", "Failed to remove item from playlist")
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Item removed from playlist",
	})
}

// ReorderPlaylist handles PUT /api/channels/:id/playlist/reorder
func (h *ChannelHandler) ReorderPlaylist(c *gin.Context) {
	channelID, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	var req ReorderPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	reorderItems := make([]db.ReorderItem, 0, len(req.Items))
	for _, item := range req.Items {
		itemID, err := uuid.Parse(item.ItemID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_item_id",
				Message: "Invalid playlist item ID format: " + item.ItemID,
			})
			return
		}
		reorderItems = append(reorderItems, db.ReorderItem{ID: itemID, Position: item.Position})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.playlistService.ReorderPlaylist(ctx, channelID, reorderItems); err != nil {
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Int("count", len(reorderItems)).
			Msg("Failed to reorder playlist")
		writeChannelError(c, err, "reorder_failed", "Failed to reorder playlist")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Playlist reordered successfully",
	})
}

// SetupChannelRoutes registers channel and playlist routes
func SetupChannelRoutes(apiGroup *gin.RouterGroup, channelService *channel.ChannelService, playlistService *channel.PlaylistService, durations DurationResolver) {
	handler := NewChannelHandler(channelService, playlistService, durations)

	channels := apiGroup.Group("/channels")
	{
		channels.POST("", handler.CreateChannel)
		channels.GET("", handler.ListChannels)
		channels.GET("/:id", handler.GetChannel)
		channels.PUT("/:id", handler.UpdateChannel)
		channels.DELETE("/:id", handler.DeleteChannel)

		channels.GET("/:id/playlist", handler.GetPlaylist)
		channels.POST("/:id/playlist", handler.AddToPlaylist)
		channels.POST("/:id/playlist/bulk", handler.BulkAddToPlaylist)
		channels.PUT("/:id/playlist/reorder", handler.ReorderPlaylist)
		channels.DELETE("/:id/playlist/:item_id", handler.RemoveFromPlaylist)
	}
}

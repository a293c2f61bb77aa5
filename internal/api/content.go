package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
)

const (
	defaultContentLimit = 20
	maxContentLimit     = 100
)

// RegisterContentRequest represents a request to add a file to the catalog
type RegisterContentRequest struct {
	FilePath string   `json:"file_path" binding:"required"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// ContentListResponse represents a paginated list of content items
type ContentListResponse struct {
	Items  []*models.ContentItem `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// DurationResponse reports the resolved length of a content item
type DurationResponse struct {
	ContentItemID   string    `json:"content_item_id"`
	DurationSeconds float64   `json:"duration_seconds"`
	Estimated       bool      `json:"estimated"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// ContentHandler handles catalog content requests
type ContentHandler struct {
	content  *channel.ContentService
	resolver *duration.Resolver
}

// NewContentHandler creates a new content handler instance
func NewContentHandler(content *channel.ContentService, resolver *duration.Resolver) *ContentHandler {
	return &ContentHandler{
		content:  content,
		resolver: resolver,
	}
}

// writeContentError maps content service errors onto responses
func writeContentError(c *gin.Context, err error, fallbackCode, fallbackMessage string) {
	switch {
	case errors.Is(err, channel.ErrContentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Content item not found",
		})
	case errors.Is(err, channel.ErrDuplicateContent):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_content",
			Message: "A content item is already registered for this path",
		})
	case errors.Is(err, channel.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unsupported_format",
			Message: err.Error(),
		})
	case errors.Is(err, channel.ErrUnreadableContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_file",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   fallbackCode,
			Message: fallbackMessage,
		})
	}
}

// RegisterContent handles POST /api/content
func (h *ContentHandler) RegisterContent(c *gin.Context) {
	var req RegisterContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	item, err := h.content.Register(ctx, channel.ContentInput{
		FilePath: req.FilePath,
		Title:    req.Title,
		Tags:     req.Tags,
		Year:     req.Year,
		Category: req.Category,
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("file_path", req.FilePath).
			Msg("Failed to register content")
		writeContentError(c, err, "register_failed", "Failed to register content")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// ListContent handles GET /api/content?limit=&offset=
func (h *ContentHandler) ListContent(c *gin.Context) {
	limit := defaultContentLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxContentLimit)
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.content.List(ctx, limit, offset)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list content")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to retrieve content",
		})
		return
	}

	if items == nil {
		items = []*models.ContentItem{}
	}

	c.JSON(http.StatusOK, ContentListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetContent handles GET /api/content/:id
func (h *ContentHandler) GetContent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid content item ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	item, err := h.content.GetByID(ctx, id)
	if err != nil {
		writeContentError(c, err, "retrieval_failed", "Failed to retrieve content")
		return
	}

	c.JSON(http.StatusOK, item)
}

// GetDuration handles GET /api/content/:id/duration.
// The item is probed when nothing is cached.
func (h *ContentHandler) GetDuration(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid content item ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	item, err := h.content.GetByID(ctx, id)
	if err != nil {
		writeContentError(c, err, "retrieval_failed", "Failed to retrieve content")
		return
	}

	result := h.resolver.Resolve(ctx, item)

	c.JSON(http.StatusOK, DurationResponse{
		ContentItemID:   id.String(),
		DurationSeconds: result.Seconds,
		Estimated:       result.Estimated,
		ResolvedAt:      result.ResolvedAt,
	})
}

// InvalidateDuration handles DELETE /api/content/:id/duration
func (h *ContentHandler) InvalidateDuration(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid content item ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.content.GetByID(ctx, id); err != nil {
		writeContentError(c, err, "invalidate_failed", "Failed to invalidate duration")
		return
	}

	if err := h.resolver.Invalidate(ctx, id); err != nil {
		logger.Log.Error().
			Err(err).
			Str("content_item_id", id.String()).
			Msg("Failed to invalidate duration")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "invalidate_failed",
			Message: "Failed to invalidate duration",
		})
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Duration invalidated",
	})
}

// SetupContentRoutes registers content catalog routes
func SetupContentRoutes(apiGroup *gin.RouterGroup, content *channel.ContentService, resolver *duration.Resolver) {
	handler := NewContentHandler(content, resolver)

	group := apiGroup.Group("/content")
	{
		group.POST("", handler.RegisterContent)
		group.GET("", handler.ListContent)
		group.GET("/:id", handler.GetContent)
		group.GET("/:id/duration", handler.GetDuration)
		group.DELETE("/:id/duration", handler.InvalidateDuration)
	}
}

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/guide"
	"github.com/stwalsh4118/retroguide/internal/logger"
)

const (
	contentTypeM3U   = "audio/x-mpegurl"
	contentTypeXMLTV = "application/xml; charset=utf-8"
	contentTypeHLS   = "application/vnd.apple.mpegurl"

	// HeaderGuideGeneratedAt carries the generation time of a served guide
	HeaderGuideGeneratedAt = "X-Guide-Generated-At"
)

// RefreshResponse reports a freshly rendered guide
type RefreshResponse struct {
	GeneratedAt time.Time `json:"generated_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Channels    int       `json:"channels"`
	Programmes  int       `json:"programmes"`
}

// GuideHandler serves the channel list, the program guide and per-channel stream playlists
type GuideHandler struct {
	exporter  *guide.Exporter
	publisher *guide.Publisher
}

// NewGuideHandler creates a new guide handler instance
func NewGuideHandler(exporter *guide.Exporter, publisher *guide.Publisher) *GuideHandler {
	return &GuideHandler{
		exporter:  exporter,
		publisher: publisher,
	}
}

// ChannelList handles GET /playlist.m3u
func (h *GuideHandler) ChannelList(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.exporter.ChannelList(ctx, &buf); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render channel list")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "render_failed",
			Message: "Failed to render channel list",
		})
		return
	}

	c.Data(http.StatusOK, contentTypeM3U, buf.Bytes())
}

// Guide handles GET /guide.xml from the published cache
func (h *GuideHandler) Guide(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	doc, err := h.publisher.Document(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render guide")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "render_failed",
			Message: "Failed to render guide",
		})
		return
	}

	c.Header("Last-Modified", doc.GeneratedAt.UTC().Format(http.TimeFormat))
	c.Header(HeaderGuideGeneratedAt, doc.GeneratedAt.UTC().Format(time.RFC3339))
	c.Data(http.StatusOK, contentTypeXMLTV, doc.Content)
}

// Stream handles GET /stream/:id with an HLS playlist of what is airing
func (h *GuideHandler) Stream(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.exporter.Stream(ctx, &buf, id); err != nil {
		switch {
		case errors.Is(err, channel.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
		case errors.Is(err, guide.ErrNothingAiring):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "nothing_airing",
				Message: "Channel has nothing to air",
			})
		default:
			logger.Log.Error().
				Err(err).
				Str("channel_id", id.String()).
				Msg("Failed to render stream playlist")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "render_failed",
				Message: "Failed to render stream playlist",
			})
		}
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentTypeHLS, buf.Bytes())
}

// Refresh handles POST /api/guide/refresh
func (h *GuideHandler) Refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	doc, err := h.publisher.Refresh(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Guide refresh failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "refresh_failed",
			Message: "Failed to refresh guide",
		})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		GeneratedAt: doc.GeneratedAt,
		WindowStart: doc.WindowStart,
		WindowEnd:   doc.WindowEnd,
		Channels:    doc.Stats.Channels,
		Programmes:  doc.Stats.Programmes,
	})
}

// SetupGuideRoutes registers the client-facing documents on router and the
// refresh trigger under apiGroup
func SetupGuideRoutes(router gin.IRouter, apiGroup *gin.RouterGroup, exporter *guide.Exporter, publisher *guide.Publisher) {
	handler := NewGuideHandler(exporter, publisher)

	router.GET("/playlist.m3u", handler.ChannelList)
	router.GET("/guide.xml", handler.Guide)
	router.GET("/stream/:id", handler.Stream)

	apiGroup.POST("/guide/refresh", handler.Refresh)
}

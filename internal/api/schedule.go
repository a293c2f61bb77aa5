package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/guide"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
	"github.com/stwalsh4118/retroguide/internal/timeline"
)

// maxScheduleSpan bounds a single schedule query
const maxScheduleSpan = 14 * 24 * time.Hour

// ProgramResponse represents one airing in API responses
type ProgramResponse struct {
	ContentItemID   string              `json:"content_item_id"`
	Title           string              `json:"title"`
	SequenceIndex   int                 `json:"sequence_index"`
	StartTime       time.Time           `json:"start_time"`
	StopTime        time.Time           `json:"stop_time"`
	DurationSeconds float64             `json:"duration_seconds"`
	Estimated       bool                `json:"estimated"`
	ContentItem     *models.ContentItem `json:"content_item,omitempty"`
}

// NowPlayingResponse describes what a channel is airing at request time
type NowPlayingResponse struct {
	ChannelID           string           `json:"channel_id"`
	Airing              bool             `json:"airing"`
	Program             *ProgramResponse `json:"program,omitempty"`
	ResumeOffsetSeconds float64          `json:"resume_offset_seconds"`
}

// ScheduleResponse is a list of programs for a channel
type ScheduleResponse struct {
	ChannelID   string             `json:"channel_id"`
	WindowStart *time.Time         `json:"window_start,omitempty"`
	WindowEnd   *time.Time         `json:"window_end,omitempty"`
	Programs    []*ProgramResponse `json:"programs"`
}

// AnchorResponse reports a channel's new anchor
type AnchorResponse struct {
	ChannelID  string    `json:"channel_id"`
	AnchorTime time.Time `json:"anchor_time"`
}

// ScheduleHandler serves schedule lookups
type ScheduleHandler struct {
	timeline *timeline.TimelineService
	window   time.Duration
}

// NewScheduleHandler creates a schedule handler. window is the default span
// of a schedule query without an end.
func NewScheduleHandler(timelineService *timeline.TimelineService, window time.Duration) *ScheduleHandler {
	return &ScheduleHandler{
		timeline: timelineService,
		window:   window,
	}
}

func toProgramResponse(p timeline.Program) *ProgramResponse {
	resp := &ProgramResponse{
		Title:           guide.ProgramTitle(p),
		SequenceIndex:   p.SequenceIndex,
		StartTime:       p.StartTime,
		StopTime:        p.StopTime,
		DurationSeconds: p.Duration().Seconds(),
		Estimated:       p.Estimated,
		ContentItem:     p.Item,
	}
	if p.Item != nil {
		resp.ContentItemID = p.Item.ID.String()
	}
	return resp
}

func toProgramResponses(programs []timeline.Program) []*ProgramResponse {
	out := make([]*ProgramResponse, 0, len(programs))
	for _, p := range programs {
		out = append(out, toProgramResponse(p))
	}
	return out
}

// writeScheduleError maps timeline errors onto responses
func writeScheduleError(c *gin.Context, channelID uuid.UUID, err error) {
	switch {
	case errors.Is(err, channel.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Channel not found",
		})
	case errors.Is(err, timeline.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_window",
			Message: "Window end must not be before window start",
		})
	default:
		logger.Log.Error().
			Err(err).
			Str("channel_id", channelID.String()).
			Msg("Failed to compute schedule")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "schedule_failed",
			Message: "Failed to compute schedule",
		})
	}
}

// NowPlaying handles GET /api/channels/:id/now
func (h *ScheduleHandler) NowPlaying(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	pos, err := h.timeline.WhatsOnNow(ctx, id)
	if err != nil {
		writeScheduleError(c, id, err)
		return
	}

	response := NowPlayingResponse{ChannelID: id.String()}
	if pos != nil {
		response.Airing = true
		response.Program = toProgramResponse(pos.Program)
		response.ResumeOffsetSeconds = pos.ResumeOffset.Seconds()
	}

	c.JSON(http.StatusOK, response)
}

// Upcoming handles GET /api/channels/:id/upcoming?count=N
func (h *ScheduleHandler) Upcoming(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	count := 10
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_count",
				Message: "count must be an integer",
			})
			return
		}
		count = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	programs, err := h.timeline.Upcoming(ctx, id, count)
	if err != nil {
		writeScheduleError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, ScheduleResponse{
		ChannelID: id.String(),
		Programs:  toProgramResponses(programs),
	})
}

// Schedule handles GET /api/channels/:id/schedule?start=&end=
// Both bounds are RFC3339; start defaults to now and end to start plus the guide window.
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	start := time.Now().UTC()
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_start",
				Message: "start must be an RFC3339 timestamp",
			})
			return
		}
		start = t
	}

	end := start.Add(h.window)
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_end",
				Message: "end must be an RFC3339 timestamp",
			})
			return
		}
		end = t
	}

	if end.Sub(start) > maxScheduleSpan {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "window_too_large",
			Message: "Schedule window cannot exceed 14 days",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	programs, err := h.timeline.GenerateWindow(ctx, id, start, end)
	if err != nil {
		writeScheduleError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, ScheduleResponse{
		ChannelID:   id.String(),
		WindowStart: &start,
		WindowEnd:   &end,
		Programs:    toProgramResponses(programs),
	})
}

// ResetAnchor handles POST /api/channels/:id/anchor/reset
func (h *ScheduleHandler) ResetAnchor(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "invalid_id", "Invalid channel ID format")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	anchor, err := h.timeline.ResetAnchor(ctx, id)
	if err != nil {
		writeScheduleError(c, id, err)
		return
	}

	logger.Log.Info().
		Str("channel_id", id.String()).
		Time("anchor", anchor.Time).
		Msg("Channel anchor reset")

	c.JSON(http.StatusOK, AnchorResponse{
		ChannelID:  id.String(),
		AnchorTime: anchor.Time,
	})
}

// SetupScheduleRoutes registers schedule lookup routes under /channels
func SetupScheduleRoutes(apiGroup *gin.RouterGroup, timelineService *timeline.TimelineService, window time.Duration) {
	handler := NewScheduleHandler(timelineService, window)

	channels := apiGroup.Group("/channels")
	{
		channels.GET("/:id/now", handler.NowPlaying)
		channels.GET("/:id/upcoming", handler.Upcoming)
		channels.GET("/:id/schedule", handler.Schedule)
		channels.POST("/:id/anchor/reset", handler.ResetAnchor)
	}
}

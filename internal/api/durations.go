package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/retroguide/internal/channel"
	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/logger"
)

// WarmResponse represents the response after starting a warm job
type WarmResponse struct {
	JobID   string `json:"job_id"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// DurationHandler runs bulk duration pre-warm jobs
type DurationHandler struct {
	warmer  *duration.Warmer
	content *channel.ContentService
}

// NewDurationHandler creates a new duration handler instance
func NewDurationHandler(warmer *duration.Warmer, content *channel.ContentService) *DurationHandler {
	return &DurationHandler{
		warmer:  warmer,
		content: content,
	}
}

// StartWarm handles POST /api/durations/warm
func (h *DurationHandler) StartWarm(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	items, err := h.content.All(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load content for warm job")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "warm_failed",
			Message: "Failed to load content",
		})
		return
	}

	// The job runs asynchronously and must not be tied to the request lifecycle
	jobID, err := h.warmer.Start(context.Background(), items)
	if err != nil {
		if errors.Is(err, duration.ErrJobAlreadyRunning) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "warm_in_progress",
				Message: "A warm job is already running",
			})
			return
		}

		logger.Log.Error().Err(err).Msg("Failed to start warm job")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "warm_failed",
			Message: "Failed to start warm job",
		})
		return
	}

	c.JSON(http.StatusCreated, WarmResponse{
		JobID:   jobID,
		Total:   len(items),
		Message: "Warm job started",
	})
}

// GetWarmStatus handles GET /api/durations/warm/:job_id
func (h *DurationHandler) GetWarmStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	progress, err := h.warmer.Progress(jobID)
	if err != nil {
		if errors.Is(err, duration.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Warm job not found",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "status_failed",
			Message: "Failed to retrieve warm job status",
		})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CancelWarm handles DELETE /api/durations/warm/:job_id
func (h *DurationHandler) CancelWarm(c *gin.Context) {
	jobID := c.Param("job_id")

	if err := h.warmer.Cancel(jobID); err != nil {
		switch {
		case errors.Is(err, duration.ErrJobNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Warm job not found",
			})
		case errors.Is(err, duration.ErrJobNotRunning):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "not_running",
				Message: "Warm job has already finished",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "cancel_failed",
				Message: "Failed to cancel warm job",
			})
		}
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Warm job cancellation requested",
	})
}

// SetupDurationRoutes registers duration warm job routes
func SetupDurationRoutes(apiGroup *gin.RouterGroup, warmer *duration.Warmer, content *channel.ContentService) {
	handler := NewDurationHandler(warmer, content)

	warm := apiGroup.Group("/durations/warm")
	{
		warm.POST("", handler.StartWarm)
		warm.GET("/:job_id", handler.GetWarmStatus)
		warm.DELETE("/:job_id", handler.CancelWarm)
	}
}

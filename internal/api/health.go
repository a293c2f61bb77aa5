package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/retroguide/internal/db"
)

// HealthChecker is implemented by backing services that can report reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status        string         `json:"status"`
	Database      string         `json:"database"`
	DurationCache string         `json:"duration_cache,omitempty"`
	Time          string         `json:"time"`
	Details       map[string]any `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *db.DB
	cache HealthChecker
}

// NewHealthHandler creates a new health check handler. cache may be nil when
// the duration cache lives in the database.
func NewHealthHandler(database *db.DB, cache HealthChecker) *HealthHandler {
	return &HealthHandler{db: database, cache: cache}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]any),
	}

	// Check database connectivity
	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Database = "healthy"

	// A cache outage degrades scheduling to estimates, it does not take the service down
	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			response.Status = "degraded"
			response.DurationCache = "unhealthy"
			response.Details["duration_cache_error"] = err.Error()
		} else {
			response.DurationCache = "healthy"
		}
	}

	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, cache HealthChecker) {
	handler := NewHealthHandler(database, cache)
	apiGroup.GET("/health", handler.Check)
}

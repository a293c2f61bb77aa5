package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DeleteResponse represents a successful delete operation
type DeleteResponse struct {
	Message string `json:"message"`
}

// parseUUIDParam reads a path parameter as a UUID, writing a 400 with
// errorCode when it is malformed
func parseUUIDParam(c *gin.Context, name, errorCode, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   errorCode,
			Message: message,
		})
		return uuid.Nil, false
	}
	return id, true
}

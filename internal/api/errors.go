package api

import (
	"errors"
	"net/http"

	"github.com/engagement-api/internal/service"
	"github.com/engagement-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// partialWriteKey marks a response whose first write was kept, so a retry
// with the same Idempotency-Key must not run the operation again
const partialWriteKey = "partial_write"

// respondError maps a service error to its status code and writes {"error": ...}
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": inputErr.Errors})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyRated):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPartialWrite):
		c.Set(partialWriteKey, true)
		c.JSON(http.StatusBadGateway, gin.H{"error": "change only partially saved, it will be repaired shortly"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pathID reads and validates a route parameter
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if errs := validation.ValidateID(name, id); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": errs})
		return "", false
	}
	return id, true
}

// bindJSON decodes the request body, answering 400 on failure
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

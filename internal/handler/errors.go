package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

// respondError maps domain errors to HTTP statuses. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrIneligible):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrStaleWrite),
		errors.Is(err, domain.ErrImmutable),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func invalidRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("Invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Invalid request format",
	})
}

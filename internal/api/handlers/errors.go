package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/service"
)

func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, engine.ErrInsufficientHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient_history", "details": err.Error()})
	case errors.Is(err, engine.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "details": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

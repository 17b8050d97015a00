package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/physics"
	"github.com/playmatatu/billiards/internal/sim"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sim.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
	case errors.Is(err, sim.ErrSessionStopped):
		c.JSON(http.StatusConflict, gin.H{"error": "table is stopped"})
	case errors.Is(err, physics.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, physics.ErrUnplaceable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

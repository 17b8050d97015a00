package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/sim"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status and the number of running tables.
func HealthCheck(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "billiards-sim",
			"version": version,
			"uptime":  time.Since(startTime).String(),
			"tables":  len(mgr.Tables()),
		})
	}
}

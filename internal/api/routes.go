package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/api/handlers"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/middleware"
	"github.com/playmatatu/billiards/internal/sim"
	"github.com/playmatatu/billiards/internal/ws"
)

// SetupRoutes configures all API routes. frames may be nil when no Redis
// frame cache is available.
func SetupRoutes(router *gin.Engine, mgr *sim.Manager, hub *ws.Hub, frames handlers.FrameCache, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	router.GET("/health", handlers.HealthCheck(mgr))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(mgr))

		tables := v1.Group("/tables")
		{
			tables.POST("", handlers.CreateTable(mgr))
			tables.GET("/:token", handlers.GetTable(mgr, frames))
			tables.POST("/:token/kick", handlers.KickTable(mgr))
			tables.POST("/:token/stop", handlers.StopTable(mgr))
			tables.GET("/:token/snapshots", handlers.ListSnapshots(mgr))
			tables.GET("/:token/ws", handlers.HandleTableWebSocket(mgr, hub))
		}
	}
}

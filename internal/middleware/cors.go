package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
)

var productionOrigins = []string{
	"https://billiards.playmatatu.com",
}

// allowedOrigins lists the exact origins accepted outside development.
func allowedOrigins(cfg *config.Config) []string {
	origins := append([]string(nil), productionOrigins...)
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	return origins
}

// originAllowed reports whether a browser origin may talk to the API.
func originAllowed(cfg *config.Config, origin string) bool {
	if cfg.Environment == "development" {
		if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
			return true
		}
	}
	for _, o := range allowedOrigins(cfg) {
		if origin == o {
			return true
		}
	}
	return false
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length"},
		AllowOriginFunc: func(origin string) bool {
			return originAllowed(cfg, origin)
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.Environment != "development" {
		log.Printf("[CORS] Production allowed origins: %v", allowedOrigins(cfg))
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.GetHeader("Connection"), "upgrade") ||
			!strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// Non-browser viewers (the simulate tool, scripts) send no origin.
			c.Next()
			return
		}
		if !originAllowed(cfg, origin) {
			c.JSON(403, gin.H{"error": "WebSocket origin not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}

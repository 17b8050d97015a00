package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	dev := &config.Config{Environment: "development", FrontendURL: "http://localhost:5173"}
	prod := &config.Config{Environment: "production", FrontendURL: "https://viewer.example.com"}

	tests := []struct {
		name   string
		cfg    *config.Config
		origin string
		want   bool
	}{
		{"dev localhost", dev, "http://localhost:3000", true},
		{"dev loopback", dev, "http://127.0.0.1:5173", true},
		{"dev stranger", dev, "https://evil.example.com", false},
		{"prod frontend", prod, "https://viewer.example.com", true},
		{"prod site", prod, "https://billiards.playmatatu.com", true},
		{"prod localhost", prod, "http://localhost:5173", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originAllowed(tt.cfg, tt.origin))
		})
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "production"}

	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name    string
		upgrade bool
		origin  string
		status  int
	}{
		{"plain request", false, "https://evil.example.com", http.StatusNoContent},
		{"upgrade without origin", true, "", http.StatusNoContent},
		{"upgrade allowed origin", true, "https://billiards.playmatatu.com", http.StatusNoContent},
		{"upgrade foreign origin", true, "https://evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

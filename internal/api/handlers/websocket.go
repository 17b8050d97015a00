package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/sim"
	"github.com/playmatatu/billiards/internal/ws"
)

// HandleTableWebSocket streams a table's frames to an authorised viewer.
func HandleTableWebSocket(mgr *sim.Manager, hub *ws.Hub) gin.HandlerFunc {
	return ws.NewHandler(hub, mgr, mgr.GetConfig().JWTSecret).Serve
}

package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/billiards/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Handler upgrades viewer connections for a table's frame stream.
type Handler struct {
	hub    *Hub
	tables Tables
	secret string
}

func NewHandler(hub *Hub, tables Tables, jwtSecret string) *Handler {
	return &Handler{hub: hub, tables: tables, secret: jwtSecret}
}

// viewerToken reads the viewer JWT from the vt query parameter or a bearer
// Authorization header.
func viewerToken(c *gin.Context) string {
	if vt := c.Query("vt"); vt != "" {
		return vt
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Serve handles GET /tables/:token/ws.
func (h *Handler) Serve(c *gin.Context) {
	tableToken := c.Param("token")
	vt := viewerToken(c)
	if vt == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "viewer token required"})
		return
	}

	claimed, err := auth.ParseViewerToken(h.secret, vt)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid viewer token"})
		return
	}
	if claimed != tableToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "viewer token is for another table"})
		return
	}

	s, err := h.tables.GetTable(tableToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "table not found"})
		return
	}
	first, err := json.Marshal(s.Frame())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode frame"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		id:         "v_" + conn.RemoteAddr().String(),
		tableToken: tableToken,
		conn:       conn,
		hub:        h.hub,
		tables:     h.tables,
		send:       make(chan []byte, sendBuffer),
	}
	client.send <- first

	if !h.hub.Join(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

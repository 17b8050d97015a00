package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/billiards/internal/sim"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one viewer connection bound to a single table.
type Client struct {
	id         string
	tableToken string
	conn       *websocket.Conn
	hub        *Hub
	tables     Tables
	send       chan []byte
	joined     chan struct{}
}

// Message is an inbound viewer command.
type Message struct {
	Type string `json:"type"`
}

// writePump writes queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for viewer %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for viewer %s: %v", c.id, err)
				return
			}
		}
	}
}

// readPump reads viewer commands until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for viewer %s: %v", c.id, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "get_frame":
		s, err := c.tables.GetTable(c.tableToken)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendJSON(s.Frame())

	case "kick":
		s, err := c.tables.GetTable(c.tableToken)
		if err == nil {
			err = s.Kick()
		}
		if err != nil {
			c.sendError(err.Error())
			return
		}
		log.Printf("[WS] Viewer %s kicked table %s", c.id, c.tableToken)
		c.sendJSON(map[string]interface{}{"type": "kicked", "table_token": c.tableToken})

	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// sendJSON queues a message for this viewer without blocking.
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] marshal error for viewer %s: %v", c.id, err)
		return
	}
	if !c.hub.deliver(c, data) {
		log.Printf("[WS] Dropped reply for viewer %s", c.id)
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

// Tables looks up running tables.
type Tables interface {
	GetTable(token string) (*sim.Session, error)
}

package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/playmatatu/billiards/internal/sim"
)

// Hub tracks every connected viewer, grouped into one room per table.
type Hub struct {
	rooms      map[string]map[*Client]struct{} // table token -> viewers
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects
// every viewer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for token, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, token)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.tableToken]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.tableToken] = room
			}
			room[c] = struct{}{}
			size := len(room)
			h.mu.Unlock()
			close(c.joined)
			log.Printf("[WS] Viewer %s joined table %s (room_size=%d)", c.id, c.tableToken, size)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.tableToken]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.tableToken)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("[WS] Viewer %s left table %s", c.id, c.tableToken)
		}
	}
}

// Join registers a client and waits until it is in its room. It fails if
// the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	c.joined = make(chan struct{})
	select {
	case h.register <- c:
	case <-h.done:
		return false
	}
	<-c.joined
	return true
}

// Leave unregisters a client. It is safe to call after the hub has stopped.
func (h *Hub) Leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// RoomSize returns the number of viewers watching a table.
func (h *Hub) RoomSize(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[token])
}

// BroadcastRaw sends an encoded message to every viewer of a table. Viewers
// whose buffer is full miss the message; the next frame supersedes it.
func (h *Hub) BroadcastRaw(token string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.rooms[token] {
		select {
		case c.send <- data:
			sent++
		default:
			log.Printf("[WS] Send buffer full for viewer %s on table %s, dropping message", c.id, token)
		}
	}
	return sent
}

// deliver queues data for one client if it is still registered.
func (h *Hub) deliver(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.tableToken][c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Broadcast encodes message as JSON and sends it to a table's viewers.
func (h *Hub) Broadcast(token string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.BroadcastRaw(token, data)
	return nil
}

// PublishFrame delivers a frame straight to local viewers. The server uses it
// when no Redis is configured.
func (h *Hub) PublishFrame(_ context.Context, f sim.Frame) error {
	return h.Broadcast(f.TableToken, f)
}

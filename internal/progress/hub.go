// Package progress broadcasts flashing state transitions to connected
// WebSocket clients, for an optional live-progress view (--web).
package progress

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Message is the event envelope sent over WebSocket.
type Message struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// Client wraps a websocket connection with a per-connection write mutex.
// Gorilla WebSocket requires that writes are not concurrent on the same Conn.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub is a lightweight broadcast hub for a set of WebSocket clients.
//
// A flashing session is local and single-user, so a simple in-memory hub is
// enough; Broadcast marshals once per message and fans the raw bytes out to
// each client for consistency and efficiency.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Add registers a connection with the hub and returns its Client wrapper.
func (h *Hub) Add(conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Remove unregisters a client and closes its connection.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Broadcast sends msg to all connected clients. Failures are ignored; each
// client's own read-loop will eventually notice a disconnect and remove it.
func (h *Hub) Broadcast(msg Message) {
	b, _ := json.Marshal(msg)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, b)
		c.mu.Unlock()
	}
}

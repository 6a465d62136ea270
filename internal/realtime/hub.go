// Package realtime pushes dashboard events to connected websocket views.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"netmon-dashboard/pkg/logger"
)

// Event names
const (
	EventRefresh     = "refresh"
	EventAlerts      = "alerts"
	EventHealth      = "health"
	EventDevice      = "device"
	EventSession     = "session"
	EventPollerState = "poller_state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message is the envelope of every frame sent to a view
type Message struct {
	Type  string `json:"type"` // event / hello / pong
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	TS    string `json:"ts"`
}

// Client is one connected view. The hub owns send and closes it on
// removal; pong is never closed so the read side can always signal it.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	pong chan struct{}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	now        func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
		now:        time.Now,
	}
}

// Run dispatches registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				logger.Warn("Dropping slow websocket client")
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected views
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(typ, event string, data any) []byte {
	b, err := json.Marshal(Message{
		Type:  typ,
		Event: event,
		Data:  data,
		TS:    h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to encode websocket message", logger.String("event", event), logger.Err(err))
		return nil
	}
	return b
}

// Broadcast queues an event for every client. When the queue is full the
// event is dropped rather than blocking the caller.
func (h *Hub) Broadcast(event string, data any) {
	b := h.encode("event", event, data)
	if b == nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
		logger.Warn("Websocket broadcast queue full, event dropped", logger.String("event", event))
	}
}

// Serve registers conn, sends hello and pumps frames until the peer goes
// away. It blocks for the lifetime of the connection.
func (h *Hub) Serve(conn *websocket.Conn, hello any) {
	c := &Client{conn: conn, send: make(chan []byte, sendBuffer), pong: make(chan struct{}, 1)}
	if b := h.encode("hello", "", hello); b != nil {
		c.send <- b
	}
	h.register <- c

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Websocket closed", logger.Err(err))
			}
			return
		}
		if msg.Type == "ping" {
			c.requestPong()
		}
	}
}

// requestPong asks the write pump for a pong frame. Requests coalesce while
// one is pending.
func (c *Client) requestPong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.pong:
			b := h.encode("pong", "", nil)
			if b == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

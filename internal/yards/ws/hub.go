// Package ws pushes location status updates to connected clients.
package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/itsloashh/yards-app/internal/yards/location"
)

const (
	writeWait  = 20 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Logger defines minimal logging interface required by the hub.
type Logger interface {
	Infof(string, ...interface{})
	Errorf(string, ...interface{})
}

// Gauge tracks the number of connected clients.
type Gauge interface {
	SocketConnected()
	SocketDisconnected()
}

// Message is the frame written for every status update.
type Message struct {
	Type   string          `json:"type"`
	Status location.Status `json:"status"`
}

// client owns one connection. Only its write loop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub keeps at most one connection per session. Notify never waits on the
// network; a client that falls sendBuffer frames behind is disconnected.
type Hub struct {
	logger Logger
	gauge  Gauge

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(logger Logger, gauge Gauge) *Hub {
	return &Hub{
		logger: logger,
		gauge:  gauge,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeWS upgrades the request and registers it for sessionID. initial, when
// non-nil, is queued right after the upgrade.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial *location.Status) {
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.errorf("yards ws upgrade failed: %v", err)
		return
	}
	c := newClient(conn)

	h.mu.Lock()
	if old, ok := h.clients[sessionID]; ok {
		old.stop()
	} else if h.gauge != nil {
		h.gauge.SocketConnected()
	}
	h.clients[sessionID] = c
	h.mu.Unlock()

	h.infof("yards ws session %s connected", sessionID)

	if initial != nil {
		h.Notify(sessionID, *initial)
	}

	go h.writeLoop(sessionID, c)
	go h.readLoop(sessionID, c)
}

// Notify implements session.Notifier.
func (h *Hub) Notify(sessionID string, st location.Status) {
	h.push(sessionID, Message{Type: "location", Status: st})
}

// Connected reports whether sessionID has a live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}

// Drop closes the connection of sessionID, if any.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	c, ok := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.stop()
	h.infof("yards ws session %s dropped", sessionID)
	if h.gauge != nil {
		h.gauge.SocketDisconnected()
	}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
		if h.gauge != nil {
			h.gauge.SocketDisconnected()
		}
	}
}

func (h *Hub) writeLoop(id string, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.errorf("yards ws session %s write failed: %v", id, err)
				h.remove(id, c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(id, c)
				return
			}
		}
	}
}

func (h *Hub) readLoop(id string, c *client) {
	defer h.remove(id, c)

	conn := c.conn
	conn.SetReadLimit(4 << 10)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(message)), "ping") {
			h.enqueue(id, c, []byte("pong"))
		}
	}
}

// remove stops c and forgets it unless a newer connection replaced it.
func (h *Hub) remove(id string, c *client) {
	c.stop()
	h.mu.Lock()
	removed := h.clients[id] == c
	if removed {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if removed {
		h.infof("yards ws session %s disconnected", id)
		if h.gauge != nil {
			h.gauge.SocketDisconnected()
		}
	}
}

func (h *Hub) enqueue(id string, c *client, data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		h.errorf("yards ws session %s too slow, disconnecting", id)
		h.remove(id, c)
	}
}

func (h *Hub) push(id string, payload interface{}) {
	h.mu.RLock()
	c := h.clients[id]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.errorf("yards ws marshal failed: %v", err)
		return
	}
	h.enqueue(id, c, data)
}

func (h *Hub) infof(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Infof(format, args...)
	}
}

func (h *Hub) errorf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Errorf(format, args...)
	}
}

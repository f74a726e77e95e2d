package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/formcoach/internal/metrics"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Live feed message types.
const (
	MessageState        = "state"
	MessageSetCompleted = "set_completed"
	MessageFinished     = "finished"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one event on the live feed.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client has an ordered queue for events and a single slot for the latest
// state, so a burst of state updates never pushes events out.
type client struct {
	conn   *websocket.Conn
	events chan []byte
	notify chan struct{}

	mu    sync.Mutex
	state []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:   conn,
		events: make(chan []byte, clientBuffer),
		notify: make(chan struct{}, 1),
	}
}

// setState replaces the pending state and reports whether an unsent one
// was overwritten.
func (c *client) setState(data []byte) (replaced bool) {
	c.mu.Lock()
	replaced = c.state != nil
	c.state = data
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return replaced
}

func (c *client) takeState() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.state
	c.state = nil
	return data
}

// Hub fans session events out to websocket clients. A client that falls
// behind skips intermediate states, and loses events once its queue is
// full, rather than slowing the session down.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Manager

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
}

// NewHub creates a Hub. m may be nil.
func NewHub(logger *slog.Logger, m *metrics.Manager) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "live_hub"),
		metrics: m,
		clients: make(map[*client]struct{}),
	}
}

// Broadcast encodes msg once and queues it for every client. The latest
// state message is replayed to clients that connect later.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode live message", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if msg.Type == MessageState {
		h.last = data
	}

	for c := range h.clients {
		if msg.Type == MessageState {
			if c.setState(data) {
				h.dropped()
			}
			continue
		}
		select {
		case c.events <- data:
		default:
			h.dropped()
		}
	}
}

func (h *Hub) dropped() {
	if h.metrics != nil {
		h.metrics.CounterLiveDropped.Inc()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
}

// ServeHTTP upgrades the request and streams messages until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn)
	if !h.register(c) {
		conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
	<-done
	conn.Close()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.setState(h.last)
	}
	if h.metrics != nil {
		h.metrics.GaugeLiveClients.Inc()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.events)
	if h.metrics != nil {
		h.metrics.GaugeLiveClients.Dec()
	}
}

func (h *Hub) writePump(c *client) {
	for {
		var data []byte
		select {
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			data = msg
		case <-c.notify:
			if data = c.takeState(); data == nil {
				continue
			}
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Unblock the read loop; it unregisters the client.
			c.conn.Close()
			for range c.events {
			}
			return
		}
	}
}

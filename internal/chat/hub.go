package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/database"
	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

// EventTypeMessage is pushed for every stored message
const EventTypeMessage = "message"

// Event is the frame pushed to subscribers
type Event struct {
	Type    string            `json:"type"`
	Message *database.Message `json:"message"`
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump keeps the pong deadline fresh. Inbound frames are discarded;
// messages are posted over HTTP.
func (c *client) readPump(logger *slog.Logger) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("Chat websocket read error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("Chat websocket write failed", "error", err)
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

// Hub fans stored messages out to websocket subscribers. A subscriber
// whose buffer is full misses the push instead of stalling the room.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *monitoring.Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub accepting browser connections from allowedOrigins.
// Requests without an Origin header are always accepted.
func NewHub(allowedOrigins []string, logger *slog.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
		logger:  logger,
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and blocks until the subscriber leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Chat websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := newClient(conn)
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
		return
	}

	go c.writePump(h.logger)
	c.readPump(h.logger)

	h.unregister(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.AddChatSubscribers(1)
	h.logger.Debug("Chat subscriber joined", "subscribers", len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.AddChatSubscribers(-1)
		h.logger.Debug("Chat subscriber left", "subscribers", len(h.clients))
	}
	h.mu.Unlock()

	c.close()
}

// Broadcast pushes msg to every subscriber without blocking
func (h *Hub) Broadcast(msg *database.Message) {
	data, err := json.Marshal(Event{Type: EventTypeMessage, Message: msg})
	if err != nil {
		h.logger.Error("Failed to encode chat event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		case <-c.done:
		default:
			h.metrics.IncrementChatDropped()
			h.logger.Warn("Chat subscriber buffer full, dropping push", "message_id", msg.ID)
		}
	}
}

// Count returns the number of live subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.closed = true
	h.mu.Unlock()

	for c := range clients {
		h.metrics.AddChatSubscribers(-1)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
	}

	if len(clients) > 0 {
		h.logger.Info("Chat hub closed", "disconnected", len(clients))
	}
}

package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/internal/snapshot"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	sendBuffer   = 8
	maxReadBytes = 512
)

// Event is pushed to every client when a snapshot is published
type Event struct {
	Type       string    `json:"type"` // "hello" or "snapshot"
	State      string    `json:"state"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
	Source     string    `json:"source,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshot notifications out to websocket clients.
// Clients only listen; dashboards re-query the REST API on a new generation.
// ⭐ SSOT: 웹소켓 연결 관리는 Hub 에서만
type Hub struct {
	store    *snapshot.Store
	upgrader websocket.Upgrader
	logger   *logger.Logger

	clients   map[*client]struct{}
	clientsMu sync.RWMutex
}

// NewHub creates a hub; checkOrigin may be nil to allow every origin
func NewHub(store *snapshot.Store, checkOrigin func(r *http.Request) bool, log *logger.Logger) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:  log.Module("ws"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers the client
// GET /ws
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	status := h.store.Status()
	if msg, err := json.Marshal(Event{
		Type:       "hello",
		State:      string(status.State),
		Generation: status.Generation,
		LoadedAt:   status.LoadedAt,
		Source:     status.Source,
	}); err == nil {
		c.send <- msg
	}

	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.clientsMu.Unlock()
	metrics.WebsocketClients.Set(float64(n))

	go h.writePump(c)
	go h.readPump(c)
}

// Notify is a snapshot.Subscriber
func (h *Hub) Notify(snap *snapshot.Snapshot) {
	h.Broadcast(Event{
		Type:       "snapshot",
		State:      string(snapshot.StateReady),
		Generation: snap.Generation,
		LoadedAt:   snap.LoadedAt,
		Source:     snap.Source,
	})
}

// Broadcast queues an event for every client; slow clients are dropped
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal websocket event")
		return
	}

	var slow []*client
	h.clientsMu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client")
		h.remove(c)
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.clientsMu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.clientsMu.Unlock()

	metrics.WebsocketClients.Set(float64(n))
}

// writePump owns all writes to the connection
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
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
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second
	// Maximum message size allowed from peer
	defaultMaxMessageSize = 512
)

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound events pending broadcast
	broadcast chan Event

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	cfg      config.EventsConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu sync.RWMutex

	stats *HubStats
}

// HubStats tracks hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	LastConnectionTime time.Time `json:"last_connection_time,omitempty"`
	LastDisconnectTime time.Time `json:"last_disconnect_time,omitempty"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time,omitempty"`
}

// NewHub creates a new event hub
func NewHub(cfg config.EventsConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		cfg:        cfg,
		logger:     logger,
		stats:      &HubStats{},
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the Origin header against the configured
// allow list. An empty list or a "*" entry admits every origin.
func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Run starts the hub and handles client registration/unregistration
// and broadcasting
func (h *Hub) Run() {
	h.logger.Info("Starting event hub", zap.String("component", "events"))

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.stats.LastConnectionTime = time.Now()

	h.logger.Info("Client connected",
		zap.String("component", "events"),
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", h.stats.ActiveConnections),
	)
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		h.stats.ActiveConnections--
		h.stats.LastDisconnectTime = time.Now()

		h.logger.Info("Client disconnected",
			zap.String("component", "events"),
			zap.String("client_id", client.ID),
			zap.String("client_ip", client.IP),
			zap.Int64("active_connections", h.stats.ActiveConnections),
		)

		if h.cfg.Broadcast.Connections {
			h.queueConnectionEvent("disconnected", client)
		}
	}
}

// broadcastEvent delivers an event to every subscribed client. Slow
// clients whose send buffers are full get dropped; a stalled consumer
// must not stall the hub.
func (h *Hub) broadcastEvent(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if !h.shouldSendToClient(client, event) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.TotalMessages++
		default:
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("component", "events"),
				zap.String("client_id", client.ID),
			)
			delete(h.clients, client)
			close(client.Send)
			h.stats.ActiveConnections--
		}
	}
}

// shouldSendToClient checks the client's subscription filter
func (h *Hub) shouldSendToClient(client *Client, event Event) bool {
	if client.Subscription == nil {
		// No subscription filter, send all events
		return true
	}

	for _, eventType := range client.Subscription.Events {
		if eventType == event.Type {
			return true
		}
	}
	return false
}

// BroadcastEvent queues an event for delivery if its class is enabled
// in the hub configuration. It never blocks: when the queue is full
// the event is dropped.
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("component", "events"),
			zap.String("event_type", string(event.Type)),
		)
	}
}

// shouldBroadcastEvent checks the per-class broadcast toggles
func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeAnonymization:
		return h.cfg.Broadcast.Anonymization
	case EventTypeSystemStatus:
		return h.cfg.Broadcast.System
	case EventTypeConnection:
		return h.cfg.Broadcast.Connections
	default:
		return false
	}
}

func (h *Hub) queueConnectionEvent(action string, client *Client) {
	event := Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data: ConnectionEvent{
			Action:    action,
			ClientID:  client.ID,
			ClientIP:  client.IP,
			UserAgent: client.UserAgent,
			Message:   fmt.Sprintf("Client %s %s", client.ID, action),
		},
	}

	select {
	case h.broadcast <- event:
	default:
	}
}

// HandleWebSocket upgrades the request and attaches the client to the hub
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Username != "" {
		if !h.authorize(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="events"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	if max := h.cfg.MaxConnections; max > 0 {
		h.mu.RLock()
		active := len(h.clients)
		h.mu.RUnlock()
		if active >= max {
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection",
			zap.String("component", "events"),
			zap.Error(err),
		)
		return
	}

	client := &Client{
		ID:          "client_" + uuid.NewString()[:8],
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	}

	h.register <- client

	if h.cfg.Broadcast.Connections {
		h.queueConnectionEvent("connected", client)
	}

	go h.writePump(client)
	go h.readPump(client)
}

// authorize checks HTTP basic auth against the configured credentials
func (h *Hub) authorize(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Basic" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	creds := strings.SplitN(string(decoded), ":", 2)
	if len(creds) != 2 {
		return false
	}
	return creds[0] == h.cfg.Username && creds[1] == h.cfg.Password
}

// writePump forwards queued events to the peer and keeps the
// connection alive with pings
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.pingPeriod())
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(h.writeWait()))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Error("Failed to write WebSocket message",
					zap.String("component", "events"),
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.writeWait()))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client messages until the connection drops
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.unregister <- client
		client.Conn.Close()
	}()

	maxSize := h.cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	client.Conn.SetReadLimit(maxSize)
	client.Conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	client.Conn.SetPongHandler(func(string) error {
		client.LastPing = time.Now()
		client.Conn.SetReadDeadline(time.Now().Add(h.pongWait()))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error",
					zap.String("component", "events"),
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
			}
			break
		}

		h.handleClientMessage(client, msg)
	}
}

// handleClientMessage handles messages received from clients
func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		if data, ok := msg.Data.(map[string]interface{}); ok {
			jsonData, _ := json.Marshal(data)
			var sub Subscription
			if err := json.Unmarshal(jsonData, &sub); err == nil {
				client.Subscription = &sub
				h.logger.Info("Client subscription updated",
					zap.String("component", "events"),
					zap.String("client_id", client.ID),
					zap.Any("subscription", sub),
				)
			}
		}
	case "ping":
		pong := Event{
			Type:      "pong",
			Timestamp: time.Now(),
			Data:      map[string]string{"message": "pong"},
		}
		select {
		case client.Send <- pong:
		default:
		}
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := *h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

func (h *Hub) writeWait() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return defaultWriteWait
}

func (h *Hub) pongWait() time.Duration {
	if h.cfg.PongTimeout > 0 {
		return h.cfg.PongTimeout
	}
	return defaultPongWait
}

// pingPeriod must be shorter than the pong wait or the peer times out
// between pings
func (h *Hub) pingPeriod() time.Duration {
	if h.cfg.PingInterval > 0 && h.cfg.PingInterval < h.pongWait() {
		return h.cfg.PingInterval
	}
	return h.pongWait() * 9 / 10
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

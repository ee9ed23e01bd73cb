package events

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of hub event
type EventType string

const (
	// EventTypeAnonymization is emitted after each anonymization request
	EventTypeAnonymization EventType = "anonymization"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a hub event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AnonymizationEvent describes one completed anonymization. It carries
// counters, type names and field paths only; raw values and
// replacements never enter the event stream.
type AnonymizationEvent struct {
	RequestID          string         `json:"request_id"`
	Source             string         `json:"source"`
	FieldsProcessed    int            `json:"fields_processed"`
	FieldsAnonymized   int            `json:"fields_anonymized"`
	PIIDetections      int            `json:"pii_detections"`
	DetectionBreakdown map[string]int `json:"detection_breakdown,omitempty"`
	FieldPaths         []string       `json:"field_paths,omitempty"`
	Compliant          bool           `json:"compliant"`
	ProcessingMS       float64        `json:"processing_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalDetections  int64  `json:"total_detections"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
	MemoryUsage      string `json:"memory_usage,omitempty"`
}

// ConnectionEvent represents hub connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to the hub
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Subscription narrows the event types a client receives. A client
// with no subscription receives everything.
type Subscription struct {
	Events []EventType `json:"events"`
}

// Client represents one connected hub client
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *Subscription
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}

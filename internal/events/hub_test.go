package events

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

func hubConfig() config.EventsConfig {
	var cfg config.EventsConfig
	cfg.Enabled = true
	cfg.Broadcast.Anonymization = true
	cfg.Broadcast.System = true
	cfg.Broadcast.Connections = true
	return cfg
}

func testClient(buffer int) *Client {
	return &Client{
		ID:          "client_test",
		Send:        make(chan Event, buffer),
		ConnectedAt: time.Now(),
	}
}

func TestBroadcastToggles(t *testing.T) {
	cfg := hubConfig()
	cfg.Broadcast.System = false
	h := NewHub(cfg, zap.NewNop())

	tests := []struct {
		name      string
		eventType EventType
		want      bool
	}{
		{"AnonymizationEnabled", EventTypeAnonymization, true},
		{"SystemDisabled", EventTypeSystemStatus, false},
		{"ConnectionsEnabled", EventTypeConnection, true},
		{"UnknownTypeNeverBroadcast", EventType("telemetry"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.shouldBroadcastEvent(tt.eventType); got != tt.want {
				t.Errorf("shouldBroadcastEvent(%q) = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestSubscriptionFiltering(t *testing.T) {
	h := NewHub(hubConfig(), zap.NewNop())

	t.Run("NoSubscriptionReceivesAll", func(t *testing.T) {
		c := testClient(1)
		if !h.shouldSendToClient(c, Event{Type: EventTypeSystemStatus}) {
			t.Error("unsubscribed client should receive every event type")
		}
	})

	t.Run("SubscribedTypeDelivered", func(t *testing.T) {
		c := testClient(1)
		c.Subscription = &Subscription{Events: []EventType{EventTypeAnonymization}}
		if !h.shouldSendToClient(c, Event{Type: EventTypeAnonymization}) {
			t.Error("subscribed type should be delivered")
		}
	})

	t.Run("UnsubscribedTypeFiltered", func(t *testing.T) {
		c := testClient(1)
		c.Subscription = &Subscription{Events: []EventType{EventTypeAnonymization}}
		if h.shouldSendToClient(c, Event{Type: EventTypeSystemStatus}) {
			t.Error("unsubscribed type should be filtered")
		}
	})
}

func TestBroadcastDelivery(t *testing.T) {
	t.Run("DeliversToAllClients", func(t *testing.T) {
		h := NewHub(hubConfig(), zap.NewNop())
		a, b := testClient(1), testClient(1)
		h.registerClient(a)
		h.registerClient(b)

		h.broadcastEvent(Event{Type: EventTypeAnonymization, Timestamp: time.Now()})

		for _, c := range []*Client{a, b} {
			select {
			case ev := <-c.Send:
				if ev.Type != EventTypeAnonymization {
					t.Errorf("unexpected event type %q", ev.Type)
				}
			default:
				t.Error("client did not receive broadcast")
			}
		}

		stats := h.GetStats()
		if stats.TotalBroadcasts != 1 || stats.TotalMessages != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("SlowClientDropped", func(t *testing.T) {
		h := NewHub(hubConfig(), zap.NewNop())
		slow := testClient(0) // no buffer and nobody reading
		h.registerClient(slow)

		h.broadcastEvent(Event{Type: EventTypeAnonymization})

		if got := h.GetStats().ActiveConnections; got != 0 {
			t.Errorf("expected slow client evicted, got %d active", got)
		}
		if _, open := <-slow.Send; open {
			t.Error("expected slow client's channel closed")
		}
	})

	t.Run("UnregisterClosesChannel", func(t *testing.T) {
		h := NewHub(hubConfig(), zap.NewNop())
		c := testClient(1)
		h.registerClient(c)
		h.unregisterClient(c)

		if got := h.GetStats().ActiveConnections; got != 0 {
			t.Errorf("expected 0 active connections, got %d", got)
		}
		if _, open := <-c.Send; open {
			t.Error("expected send channel closed on unregister")
		}
	})
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"EmptyListAllowsAll", nil, "http://evil.example", true},
		{"WildcardAllowsAll", []string{"*"}, "http://anywhere.example", true},
		{"ListedOriginAllowed", []string{"http://app.example"}, "http://app.example", true},
		{"UnlistedOriginRejected", []string{"http://app.example"}, "http://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hubConfig()
			cfg.AllowedOrigins = tt.allowed
			h := NewHub(cfg, zap.NewNop())

			r := httptest.NewRequest("GET", "/ws", nil)
			r.Header.Set("Origin", tt.origin)
			if got := h.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	cfg := hubConfig()
	cfg.Username = "observer"
	cfg.Password = "secret"
	h := NewHub(cfg, zap.NewNop())

	t.Run("ValidCredentials", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.SetBasicAuth("observer", "secret")
		if !h.authorize(r) {
			t.Error("valid credentials rejected")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.SetBasicAuth("observer", "wrong")
		if h.authorize(r) {
			t.Error("wrong password accepted")
		}
	})

	t.Run("MissingHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		if h.authorize(r) {
			t.Error("missing header accepted")
		}
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Basic not-base64!!!")
		if h.authorize(r) {
			t.Error("malformed header accepted")
		}
	})
}

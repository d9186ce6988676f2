package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
	"github.com/motive-automation/motive-core/internal/infrastructure/config"
	"github.com/motive-automation/motive-core/internal/infrastructure/logging"
	"github.com/motive-automation/motive-core/internal/manager"
)

// ─── Test Helpers ───────────────────────────────────────────────────────────

func testHub(t *testing.T) *Hub {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	return NewHub(config.WebSocketConfig{
		Path:           "/api/v1/ws",
		MaxMessageSize: 4096,
		PingInterval:   30,
		PongTimeout:    10,
	}, logger)
}

// newTestClient creates a hub client without an underlying network
// connection. Messages accumulate in the send buffer.
func newTestClient(hub *Hub, channels ...string) *WSClient {
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	return client
}

func receiveMessage(t *testing.T, client *WSClient) WSMessage {
	t.Helper()

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

// ─── Broadcast ──────────────────────────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub, ChannelTransition)
	hub.Register(client)

	hub.Broadcast(ChannelTransition, map[string]string{"controller": "pid_left"})

	msg := receiveMessage(t, client)
	if msg.Type != WSTypeEvent {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
	}
	if msg.EventType != ChannelTransition {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelTransition)
	}

	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", msg.Payload)
	}
	if payload["controller"] != "pid_left" {
		t.Errorf("payload controller = %v, want pid_left", payload["controller"])
	}
}

func TestHub_BroadcastSkipsUnsubscribed(t *testing.T) {
	hub := testHub(t)
	subscribed := newTestClient(hub, ChannelSwitch)
	other := newTestClient(hub, ChannelTransition)
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast(ChannelSwitch, map[string]string{"id": "sw1"})

	receiveMessage(t, subscribed)

	select {
	case data := <-other.send:
		t.Errorf("unsubscribed client received message: %s", data)
	default:
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Fatalf("initial count = %d, want 0", hub.ClientCount())
	}

	client := newTestClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("count after register = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("count after unregister = %d, want 0", hub.ClientCount())
	}

	// Send channel is closed after unregister
	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}

	// Double unregister must not panic
	hub.Unregister(client)
}

func TestHub_BroadcastAfterUnregister(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub, ChannelTransition)
	hub.Register(client)
	hub.Unregister(client)

	// Must not panic on closed send channel
	hub.Broadcast(ChannelTransition, map[string]string{"controller": "gone"})
}

// ─── EventSink ──────────────────────────────────────────────────────────────

func TestHub_ControllerTransitionBroadcast(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub, ChannelTransition)
	hub.Register(client)

	var _ manager.EventSink = hub

	hub.ControllerTransition(manager.TransitionEvent{
		ID:         "tr-1",
		Controller: "pid_left",
		From:       controller.StateInactive,
		To:         controller.StateActive,
		Reason:     "switch",
		At:         time.Now().UTC(),
	})

	msg := receiveMessage(t, client)
	if msg.EventType != ChannelTransition {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelTransition)
	}

	payload := msg.Payload.(map[string]any)
	if payload["from"] != "inactive" {
		t.Errorf("from = %v, want inactive", payload["from"])
	}
	if payload["to"] != "active" {
		t.Errorf("to = %v, want active", payload["to"])
	}
	if payload["controller"] != "pid_left" {
		t.Errorf("controller = %v, want pid_left", payload["controller"])
	}
}

func TestHub_SwitchAppliedBroadcast(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub, ChannelSwitch)
	hub.Register(client)

	hub.SwitchApplied(manager.SwitchEvent{
		ID:         "sw-1",
		Started:    []string{"pid_left"},
		Stopped:    []string{"pid_right"},
		Strictness: "strict",
		Duration:   1500 * time.Microsecond,
		At:         time.Now().UTC(),
	})

	msg := receiveMessage(t, client)
	if msg.EventType != ChannelSwitch {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelSwitch)
	}

	payload := msg.Payload.(map[string]any)
	if payload["strictness"] != "strict" {
		t.Errorf("strictness = %v, want strict", payload["strictness"])
	}
	if payload["duration_us"].(float64) != 1500 {
		t.Errorf("duration_us = %v, want 1500", payload["duration_us"])
	}
}

// ─── Client Message Handling ────────────────────────────────────────────────

func TestClient_Subscribe(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub)
	hub.Register(client)

	client.handleMessage([]byte(`{
		"type": "subscribe",
		"id": "msg-1",
		"payload": {"channels": ["controller.transition"]}
	}`))

	if !client.isSubscribed(ChannelTransition) {
		t.Error("client not subscribed after subscribe message")
	}

	msg := receiveMessage(t, client)
	if msg.Type != WSTypeResponse {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeResponse)
	}
	if msg.ID != "msg-1" {
		t.Errorf("id = %q, want msg-1", msg.ID)
	}
}

func TestClient_Unsubscribe(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub, ChannelTransition, ChannelSwitch)
	hub.Register(client)

	client.handleMessage([]byte(`{
		"type": "unsubscribe",
		"payload": {"channels": ["controller.transition"]}
	}`))

	if client.isSubscribed(ChannelTransition) {
		t.Error("client still subscribed after unsubscribe")
	}
	if !client.isSubscribed(ChannelSwitch) {
		t.Error("unrelated subscription was removed")
	}
}

func TestClient_Ping(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub)

	client.handleMessage([]byte(`{"type": "ping", "id": "p1"}`))

	msg := receiveMessage(t, client)
	if msg.Type != WSTypePong {
		t.Errorf("type = %q, want %q", msg.Type, WSTypePong)
	}
	if msg.ID != "p1" {
		t.Errorf("id = %q, want p1", msg.ID)
	}
}

func TestClient_UnknownMessageType(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub)

	client.handleMessage([]byte(`{"type": "teleport"}`))

	msg := receiveMessage(t, client)
	if msg.Type != WSTypeError {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeError)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	hub := testHub(t)
	client := newTestClient(hub)

	client.handleMessage([]byte(`{not json`))

	msg := receiveMessage(t, client)
	if msg.Type != WSTypeError {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeError)
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/ws", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

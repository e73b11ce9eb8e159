package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/event"
)

func startHub(t *testing.T, subject string, admin bool) (*event.InMemoryBus, *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := event.NewBus()
	hub := NewHub(bus)
	go hub.Run(ctx)

	upgrader := Upgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Serve(ctx, hub, upgrader, w, r, NewClient(hub, subject, admin))
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return bus, conn
}

// publishUntilRead keeps publishing until the client reads a message, since
// registration completes asynchronously after the handshake.
func publishUntilRead(t *testing.T, bus *event.InMemoryBus, conn *websocket.Conn, events ...event.Event) event.Event {
	t.Helper()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			for _, e := range events {
				bus.Publish(e)
			}
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, json.Unmarshal(message, &got))
	return got
}

func TestHub_AdminReceivesAllEvents(t *testing.T) {
	bus, conn := startHub(t, "admin-1", true)

	got := publishUntilRead(t, bus, conn, event.New(event.TypePipelineStep, "someone-else", nil))
	require.Equal(t, event.TypePipelineStep, got.Type)
	require.Equal(t, "someone-else", got.ActorID)
}

func TestHub_ModeratorReceivesOwnRunsOnly(t *testing.T) {
	bus, conn := startHub(t, "mod-1", false)

	got := publishUntilRead(t, bus, conn,
		event.New(event.TypePipelineStep, "someone-else", nil),
		event.New(event.TypePipelineCompleted, "mod-1", nil),
	)
	require.Equal(t, event.TypePipelineCompleted, got.Type)
	require.Equal(t, "mod-1", got.ActorID)
}

func TestServe_ReturnsWhenHubStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus()
	hub := NewHub(bus)
	go hub.Run(ctx)

	served := make(chan struct{})
	upgrader := Upgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(served)
		Serve(r.Context(), hub, upgrader, w, r, NewClient(hub, "admin-1", true))
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	publishUntilRead(t, bus, conn, event.New(event.TypePipelineStep, "admin-1", nil))
	cancel()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the hub stopped")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	upgrader := Upgrader([]string{"https://console.example"})

	req := httptest.NewRequest(http.MethodGet, "http://bff.example/ws", nil)
	require.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://console.example")
	require.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://bff.example")
	require.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	require.False(t, upgrader.CheckOrigin(req))
}

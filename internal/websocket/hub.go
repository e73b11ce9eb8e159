package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"storyteller-admin/internal/event"
)

// Hub relays bus events to connected staff consoles. Admins receive every
// pipeline event, moderators only those of runs they started.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	bus        event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		bus:        bus,
	}
}

// Run owns the client set until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	defer func() {
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case e, ok := <-events:
			if !ok {
				return
			}

			message, err := json.Marshal(e)
			if err != nil {
				slog.Error("failed to marshal event", "type", e.Type, "error", err)
				continue
			}

			for client := range h.clients {
				if !client.wants(e) {
					continue
				}
				select {
				case client.send <- message:
				default:
					slog.Warn("closing slow websocket client", "subject", client.subject)
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Register adds c to the hub unless ctx ends or the hub stops first.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Unregister is a no-op once the hub has stopped; Run already released
// every client.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-ctx.Done():
	}
}

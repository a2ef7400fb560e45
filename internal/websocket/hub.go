package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Niyati251208/sports-performance-analyzer/internal/types"
)

// Hub tracks open connections per uploader email and fans events out to them.
// One email may hold several connections, e.g. two browser tabs.
type Hub struct {
	// Registered clients keyed by email
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	// Protects clients for readers outside Run
	mu sync.RWMutex
}

// BroadcastMessage represents a message to be broadcast to specific users
type BroadcastMessage struct {
	Emails []string     `json:"emails"`
	Event  *types.Event `json:"event"`
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.Email()]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.Email()] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("email", client.Email()))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.broadcastToUsers(message.Emails, message.Event)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.Email()]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.Email())
	}
	close(client.send)
	slog.Info("WebSocket client disconnected", slog.String("email", client.Email()))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for email, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, email)
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUsers sends an event to specific users
func (h *Hub) BroadcastToUsers(emails []string, event *types.Event) {
	message := &BroadcastMessage{
		Emails: emails,
		Event:  event,
	}

	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Broadcast channel is full, dropping message")
	}
}

// BroadcastToUser sends an event to a specific user
func (h *Hub) BroadcastToUser(email string, event *types.Event) {
	h.BroadcastToUsers([]string{email}, event)
}

// broadcastToUsers runs on the hub goroutine, so it may drop slow clients directly.
func (h *Hub) broadcastToUsers(emails []string, event *types.Event) {
	var slow []*Client

	h.mu.RLock()
	for _, email := range emails {
		for client := range h.clients[email] {
			if err := client.SendEvent(event); err != nil {
				slog.Error("Failed to send event to client",
					slog.String("email", email),
					slog.String("error", err.Error()))
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.remove(client)
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[email]) > 0
}

// GetClientCount returns the number of open connections
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

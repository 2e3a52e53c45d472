package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and broadcasts messages to
// them. Slow clients are dropped rather than allowed to stall the feed.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
}

// New creates a hub; name shows up in log attrs.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop. Call it in a goroutine.
func (h *Hub) Run() {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "hub", h.name, "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "hub", h.name, "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Full buffer means the client cannot keep up.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client. If the queue
// is full the message is dropped; frames are disposable.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "hub", h.name)
	}
}

// BroadcastJSON encodes and broadcasts v.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes, used for the frame feed.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run was started.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Hub tracks live clients and routes game events to them. It is the
// delivery side of the platform: services hand it a user id and an
// event, and it fans the event out to every session bound to that
// user. Delivery is best-effort and at most once; events for offline
// users are dropped.
type Hub struct {
	clients    map[uuid.UUID]*Client // keyed by session id
	registry   *Registry
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for sessionID, client := range h.clients {
				h.registry.Unregister(sessionID)
				client.Close()
			}
			h.clients = make(map[uuid.UUID]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client.sessionID] = client
				h.registry.Register(client.sessionID, client.userID)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if !h.stopped {
				if _, ok := h.clients[client.sessionID]; ok {
					delete(h.clients, client.sessionID)
					h.registry.Unregister(client.sessionID)
					client.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop gracefully shuts down the hub and disconnects all clients.
// It blocks until Run() has fully exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister safely unregisters a client, handling the case where the
// hub may already be stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	default:
		// Hub stopped between check and send - that's ok
	}
}

// Registry exposes the session registry for lookups.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// SendToUser emits an event to every live session of the user. Users
// with no sessions receive nothing; that is not an error.
func (h *Hub) SendToUser(userID uuid.UUID, event string, payload interface{}) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		log.Printf("hub: failed to build %s event: %v", event, err)
		return
	}
	data, _ := json.Marshal(msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sessionID := range h.registry.SessionsFor(userID) {
		if client, ok := h.clients[sessionID]; ok {
			h.trySend(client, data)
		}
	}
}

// Broadcast emits an event to every connected session regardless of
// user binding.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		log.Printf("hub: failed to build %s event: %v", event, err)
		return
	}
	data, _ := json.Marshal(msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.trySend(client, data)
	}
}

// trySend attempts to send to a client, safely handling closed
// channels and full buffers. The per-client channel keeps delivery
// FIFO for each session.
func (h *Hub) trySend(client *Client, data []byte) {
	defer func() {
		if recover() != nil {
			// Channel closed, client is disconnecting - skip silently
		}
	}()

	select {
	case client.send <- data:
	default:
		// Buffer full, skip
	}
}

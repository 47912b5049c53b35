package transport

import (
	"encoding/json"
	"sync"

	"github.com/aleister1102/secwatch/internal/models"
	"github.com/rs/zerolog"
)

const clientBufferSize = 64

type client struct {
	id   uint64
	send chan []byte
}

// Hub fans messages out to connected clients. A client that cannot keep up
// loses messages rather than stalling the others.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[uint64]*client
	nextID  uint64
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "Hub").Logger(),
		clients: make(map[uint64]*client),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one message to every connected client.
func (h *Hub) Broadcast(msgType models.MessageType, payload any) error {
	frame, err := encode(msgType, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, msgType, frame)
	}
	return nil
}

// send delivers one message to a single client.
func (h *Hub) send(c *client, msgType models.MessageType, payload any) error {
	frame, err := encode(msgType, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; ok {
		h.enqueue(c, msgType, frame)
	}
	return nil
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(c *client, msgType models.MessageType, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.logger.Warn().Uint64("client_id", c.id).Str("type", string(msgType)).Msg("Client buffer full, dropping message")
	}
}

func (h *Hub) register() *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	c := &client{id: h.nextID, send: make(chan []byte, clientBufferSize)}
	h.clients[c.id] = c
	h.logger.Debug().Uint64("client_id", c.id).Int("clients", len(h.clients)).Msg("Client connected")
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.logger.Debug().Uint64("client_id", c.id).Int("clients", len(h.clients)).Msg("Client disconnected")
}

func encode(msgType models.MessageType, payload any) ([]byte, error) {
	env, err := models.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

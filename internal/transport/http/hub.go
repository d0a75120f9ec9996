package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"quizmaster-service/internal/domain"
)

const sendBuffer = 64

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// client is one connection's outbound side. send is closed by Unregister;
// kicked is closed when the connection falls too far behind.
type client struct {
	send   chan []byte
	kicked chan struct{}
	once   sync.Once
}

func (c *client) kick() {
	c.once.Do(func() { close(c.kicked) })
}

// Hub maps connection ids to their outbound queues. It implements
// app.Notifier: sends never block. A connection whose queue is full is
// kicked rather than silently missing frames.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register creates the outbound queue for connID. The queue is closed by Unregister.
func (h *Hub) Register(connID string) *client {
	c := &client{
		send:   make(chan []byte, sendBuffer),
		kicked: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		close(c.send)
	}
}

func (h *Hub) Notify(connID string, ev domain.Event) {
	h.send(connID, ev.Name(), ev)
}

func (h *Hub) sendError(connID string, err error) {
	h.send(connID, "error", errorPayload{Message: err.Error()})
}

func (h *Hub) send(connID, typ string, payload any) {
	frame, err := json.Marshal(outboundMessage{Type: typ, Payload: payload})
	if err != nil {
		slog.Error("encode frame failed", "type", typ, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		slog.Warn("send queue full, closing connection", "conn", connID, "type", typ)
		c.kick()
	}
}

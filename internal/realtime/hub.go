package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Conn is the write side of one session.
type Conn interface {
	WriteText(msg []byte) error
}

type Client struct {
	ID     string
	UserID string
	Conn   Conn
	Send   chan []byte
}

// Hub tracks the websocket sessions of this instance.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
	log        *zap.Logger

	relay *Relay // nil: deliver locally only
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// UseRelay routes every Push through redis so sessions on other instances
// receive it too.
func (h *Hub) UseRelay(r *Relay) {
	h.relay = r
}

// RegisterClient reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Push sends data to every session of userID.
func (h *Hub) Push(ctx context.Context, userID string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Warn("realtime payload not encodable", zap.String("user", userID), zap.Error(err))
		return
	}
	if h.relay != nil {
		err := h.relay.Publish(ctx, userID, payload)
		if err == nil {
			return
		}
		h.log.Warn("relay publish failed, delivering locally", zap.String("user", userID), zap.Error(err))
	}
	h.deliver(userID, payload)
}

// SendToUsers pushes the same payload to each user once.
func (h *Hub) SendToUsers(ctx context.Context, data any, userIDs ...string) {
	seen := map[string]bool{}
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		h.Push(ctx, id, data)
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			// slow reader; drop rather than block the sender
		}
	}
}

// writePump copies queued payloads to client.Conn until Send is closed or a
// write fails.
func (h *Hub) writePump(client *Client) {
	for msg := range client.Send {
		if err := client.Conn.WriteText(msg); err != nil {
			h.log.Debug("ws write failed", zap.String("user", client.UserID), zap.Error(err))
			return
		}
	}
}

// Online reports how many sessions userID has on this instance.
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// Run processes registrations until ctx ends, then closes every session's
// send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("ws client registered", zap.String("client", client.ID), zap.String("user", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
			}
			h.mu.Unlock()
			h.log.Debug("ws client unregistered", zap.String("client", client.ID))

		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

package realtime

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) WriteText(msg []byte) error {
	return w.c.WriteMessage(websocket.TextMessage, msg)
}

// Serve registers the connection for userID and pumps hub messages to it
// until the peer goes away.
func (h *Hub) Serve(c *websocket.Conn, userID string) {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   wsConn{c: c},
		Send:   make(chan []byte, 256),
	}
	if !h.RegisterClient(client) {
		_ = c.Close()
		return
	}
	defer h.UnregisterClient(client)

	go h.writePump(client)

	// upstream frames are keep-alives only
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

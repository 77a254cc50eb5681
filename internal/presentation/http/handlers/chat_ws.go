package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/presentation/http/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware already vetted the origin for the handshake.
		return true
	},
}

// GetWebSocket handles GET /api/v1/chat/ws, upgrading the connection
// and streaming session events to the widget
func (h *ChatHandlers) GetWebSocket(hub *messaging.ChatHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := middleware.GetClientID(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.SSE().Warn("WebSocket upgrade failed", "error", err.Error())
			return
		}

		client := &messaging.ChatClient{
			Conn:     conn,
			ClientID: clientID,
			Send:     make(chan []byte, 16),
		}
		hub.Register(client)

		go writePump(client)
		go readPump(hub, client)
	}
}

// writePump delivers hub events and keepalive pings to the socket
func writePump(client *messaging.ChatClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the socket until the widget disconnects. Inbound
// messages are ignored; the widget talks through the REST API.
func readPump(hub *messaging.ChatHub, client *messaging.ChatClient) {
	defer func() {
		hub.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

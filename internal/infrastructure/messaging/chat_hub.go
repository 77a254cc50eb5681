package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hall-dev/halldev-go/internal/domain/entities/chat"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

// ChatClient represents a single connected chat widget.
type ChatClient struct {
	Conn     *websocket.Conn
	ClientID string
	Send     chan []byte
}

// ChatHub manages connected chat widgets and routes session events to
// the widget they belong to.
type ChatHub struct {
	clients    map[string]map[*ChatClient]bool // clientID -> connections
	register   chan *ChatClient
	unregister chan *ChatClient
	events     chan chat.Event
	logger     *logging.ChanneledLogger
	mu         sync.RWMutex
}

// NewChatHub creates a new hub instance.
func NewChatHub(logger *logging.ChanneledLogger) *ChatHub {
	return &ChatHub{
		clients:    make(map[string]map[*ChatClient]bool),
		register:   make(chan *ChatClient),
		unregister: make(chan *ChatClient),
		events:     make(chan chat.Event, 64),
		logger:     logger,
	}
}

// Run starts the hub's main loop. This should be run as a goroutine.
func (h *ChatHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, conns := range h.clients {
				for client := range conns {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*ChatClient]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.ClientID]; !ok {
				h.clients[client.ClientID] = make(map[*ChatClient]bool)
			}
			h.clients[client.ClientID][client] = true
			h.mu.Unlock()
			h.logger.SSE().Debug("Chat widget connected", "clientId", client.ClientID)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.ClientID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.Send)
					if len(conns) == 0 {
						delete(h.clients, client.ClientID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.SSE().Debug("Chat widget disconnected", "clientId", client.ClientID)

		case event := <-h.events:
			h.deliver(event)
		}
	}
}

// Register queues a client for registration.
func (h *ChatHub) Register(client *ChatClient) {
	h.register <- client
}

// Unregister queues a client for unregistration.
func (h *ChatHub) Unregister(client *ChatClient) {
	h.unregister <- client
}

// Publish queues a chat event for delivery to the owning widget.
// Events for widgets with no open socket are dropped; the widget will
// catch up from the REST snapshot on reconnect.
func (h *ChatHub) Publish(event chat.Event) {
	select {
	case h.events <- event:
	default:
		h.logger.SSE().Warn("Chat event queue full, dropping event", "type", string(event.Type))
	}
}

func (h *ChatHub) deliver(event chat.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.SSE().Error("Failed to encode chat event", "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[event.ClientID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.SSE().Warn("Dropping chat event for slow widget", "clientId", event.ClientID)
		}
	}
}

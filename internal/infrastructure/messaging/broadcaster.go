// Package messaging provides the push transports: the SSE broadcaster
// for admin dashboards and the websocket hub for chat widgets.
package messaging

import (
	"encoding/json"
	"sync"

	"github.com/hall-dev/halldev-go/internal/domain/entities/leads"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages the SSE connections of open admin dashboards.
type SSEBroadcaster struct {
	clients    map[chan string]bool
	maxClients int
	mu         sync.Mutex
	logger     *logging.ChanneledLogger
}

// NewSSEBroadcaster creates an SSE broadcaster
func NewSSEBroadcaster(maxClients int, logger *logging.ChanneledLogger) *SSEBroadcaster {
	return &SSEBroadcaster{
		clients:    make(map[chan string]bool),
		maxClients: maxClients,
		logger:     logger,
	}
}

// AddClient registers a new dashboard connection. Returns nil when the
// connection limit is reached.
func (b *SSEBroadcaster) AddClient() chan string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) >= b.maxClients {
		b.logger.SSE().Warn("SSE connection limit reached", "limit", b.maxClients)
		return nil
	}

	ch := make(chan string, 10)
	b.clients[ch] = true
	b.logger.SSE().Debug("SSE client registered", "connections", len(b.clients))
	return ch
}

// RemoveClient unregisters a dashboard connection
func (b *SSEBroadcaster) RemoveClient(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.clients[ch]; exists {
		delete(b.clients, ch)
		close(ch)
	}
	b.logger.SSE().Debug("SSE client unregistered", "connections", len(b.clients))
}

// ConnectionCount reports the number of open dashboard connections
func (b *SSEBroadcaster) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// BroadcastDashboardEvent pushes an event to every connected dashboard.
// Slow clients that cannot keep up are skipped, not blocked on.
func (b *SSEBroadcaster) BroadcastDashboardEvent(event leads.DashboardEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.SSE().Error("Failed to encode dashboard event", "error", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- string(payload):
		default:
			b.logger.SSE().Warn("Dropping dashboard event for slow client")
		}
	}
}

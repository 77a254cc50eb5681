package chat

import "time"

// EventType identifies a chat lifecycle event pushed to the widget
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventMessageAppended  EventType = "message_appended"
	EventWarningRaised    EventType = "inactivity_warning"
	EventSessionExpired   EventType = "session_expired"
	EventSessionRestarted EventType = "session_restarted"
	EventSessionEnded     EventType = "session_ended"
	EventErrorRaised      EventType = "error"
	EventErrorCleared     EventType = "error_cleared"
)

// Event is a chat lifecycle notification delivered over the widget socket
type Event struct {
	Type      EventType `json:"type"`
	ClientID  string    `json:"clientId"`
	SessionID string    `json:"sessionId,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, clientID, sessionID string) Event {
	return Event{
		Type:      eventType,
		ClientID:  clientID,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// Package chat provides domain entities for the chat widget session
// lifecycle: the session state machine, the message transcript, and the
// events other layers observe.
package chat

import (
	"sync"
	"time"
)

// State is the lifecycle phase of a chat session
type State string

const (
	StateNoSession State = "no_session" // Nothing started yet
	StateStarting  State = "starting"   // Start request in flight
	StateReady     State = "ready"      // Session live, idle
	StateSending   State = "sending"    // Message request in flight
	StateExpired   State = "expired"    // Backend expired the session
	StateEnded     State = "ended"      // User ended the session
)

// Role identifies the author of a transcript message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the session transcript. Transcripts are
// append-only; entries are never edited in place. The one exception is
// the trailing synthetic error entry, which a retry may remove before
// resending.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Synthetic marks an assistant entry the widget fabricated after a
	// send failure, rather than one the backend produced.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Session holds the full state of one visitor's chat widget.
// All fields are guarded by Mu; callers outside the chat service must
// read through Snapshot.
type Session struct {
	Mu sync.Mutex

	ClientID  string // Browser client this session belongs to
	SessionID string // Backend session id, empty until started

	State    State
	Messages []Message

	// LastUserText is the exact text of the most recent user message,
	// kept for retry after a failed send.
	LastUserText string

	// Error is the single error slot surfaced to the widget.
	Error string

	// InactivityWarned is set once per session cycle when the backend
	// reports an inactivity warning, so the notice fires only once.
	InactivityWarned bool

	// SaveRequested / EmailRequested record the visitor's export choices.
	SaveRequested  bool
	EmailRequested bool

	StartedAt    time.Time
	LastActivity time.Time

	// StopPoll cancels the inactivity poller goroutine.
	StopPoll func()
}

// NewSession creates a session in the no-session state for a client
func NewSession(clientID string) *Session {
	return &Session{
		ClientID: clientID,
		State:    StateNoSession,
		Messages: make([]Message, 0),
	}
}

// Snapshot is an immutable copy of session state for handlers and events
type Snapshot struct {
	ClientID         string    `json:"clientId"`
	SessionID        string    `json:"sessionId"`
	State            State     `json:"state"`
	Messages         []Message `json:"messages"`
	Error            string    `json:"error,omitempty"`
	InactivityWarned bool      `json:"inactivityWarned"`
	StartedAt        time.Time `json:"startedAt"`
	LastActivity     time.Time `json:"lastActivity"`
}

// Snapshot copies the session under its lock
func (s *Session) Snapshot() Snapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.snapshotLocked()
}

// SnapshotLocked copies the session; the caller must hold Mu.
func (s *Session) SnapshotLocked() Snapshot {
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return Snapshot{
		ClientID:         s.ClientID,
		SessionID:        s.SessionID,
		State:            s.State,
		Messages:         msgs,
		Error:            s.Error,
		InactivityWarned: s.InactivityWarned,
		StartedAt:        s.StartedAt,
		LastActivity:     s.LastActivity,
	}
}

// IsActive reports whether the session can accept a message
func (s *Session) IsActive() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.State == StateReady
}

// HasSession reports whether a backend session id is held
func (s *Session) HasSession() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.SessionID != ""
}

package upstream

import (
	"context"
	"net/http"
)

// StartChatRequest begins a new assistant session
type StartChatRequest struct {
	InitialMessage string  `json:"initial_message,omitempty"`
	UserID         *string `json:"user_id"`
}

// StartChatResponse carries the new session id and its welcome message
type StartChatResponse struct {
	SessionID      string `json:"session_id"`
	WelcomeMessage string `json:"welcome_message"`
}

// StartChat calls POST /chat/start
func (c *Client) StartChat(ctx context.Context, req StartChatRequest) (*StartChatResponse, error) {
	var resp StartChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessageRequest delivers one user message to the session
type SendMessageRequest struct {
	SessionID string  `json:"session_id"`
	Message   string  `json:"message"`
	Context   *string `json:"context"`
}

// SendMessageResponse carries the assistant's reply
type SendMessageResponse struct {
	Message string `json:"message"`
}

// SendMessage calls POST /chat/message
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndChat calls POST /chat/end
func (c *Client) EndChat(ctx context.Context, sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	return c.doJSON(ctx, http.MethodPost, "/chat/end", body, nil)
}

// InactivityStatus is the backend's view of a session's liveness
type InactivityStatus struct {
	ShouldWarn       bool   `json:"should_warn"`
	WarningMessage   string `json:"warning_message,omitempty"`
	MinutesRemaining int    `json:"minutes_remaining,omitempty"`
	SessionActive    bool   `json:"session_active"`
}

// CheckInactivity calls GET /chat/inactivity-check/{sessionId}. The
// cache is skipped so every poll sees live state.
func (c *Client) CheckInactivity(ctx context.Context, sessionID string) (*InactivityStatus, error) {
	var resp InactivityStatus
	if err := c.doJSON(ctx, http.MethodGet, "/chat/inactivity-check/"+sessionID, nil, &resp, SkipCache()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveConversationRequest asks the backend to persist the transcript
type SaveConversationRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email,omitempty"`
}

type boolResponse struct {
	Success bool `json:"success"`
}

// SaveConversation calls POST /chat/save-conversation
func (c *Client) SaveConversation(ctx context.Context, req SaveConversationRequest) (bool, error) {
	var resp boolResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/save-conversation", req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// SendConversationEmail calls POST /chat/send-email
func (c *Client) SendConversationEmail(ctx context.Context, req SaveConversationRequest) (bool, error) {
	var resp boolResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/send-email", req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ConversationMessage is one transcript row from the backend
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ConversationResponse is the full transcript for one session
type ConversationResponse struct {
	SessionID string                `json:"session_id"`
	Messages  []ConversationMessage `json:"messages"`
	Summary   string                `json:"summary,omitempty"`
}

// GetConversation calls GET /chat/conversation/{sessionId}
func (c *Client) GetConversation(ctx context.Context, sessionID string) (*ConversationResponse, error) {
	var resp ConversationResponse
	if err := c.doJSON(ctx, http.MethodGet, "/chat/conversation/"+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

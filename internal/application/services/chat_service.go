// Package services contains the application services that orchestrate
// domain state, upstream calls, and push transports.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hall-dev/halldev-go/internal/domain/entities/chat"
	"github.com/hall-dev/halldev-go/internal/infrastructure/email"
	"github.com/hall-dev/halldev-go/internal/infrastructure/email/templates"
	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

const (
	errStartChat   = "Erro ao iniciar chat:"
	errSendMessage = "Erro ao enviar mensagem:"
)

// ErrNoActiveSession is returned by operations that require a live session
var ErrNoActiveSession = errors.New("no active chat session")

// ChatServiceConfig carries the chat service tunables
type ChatServiceConfig struct {
	PollInterval    time.Duration // How often inactivity is checked
	NoticeClearance time.Duration // How long the expiry notice stays before auto-clear
	MaxSessions     int
}

// ChatService owns every visitor's chat session state machine
type ChatService struct {
	sessions map[string]*chat.Session // keyed by client id
	mu       sync.RWMutex

	client *upstream.Client
	hub    *messaging.ChatHub
	email  email.Service // nil when outbound email is not configured
	logger *logging.ChanneledLogger
	perf   *performance.Tracker
	config ChatServiceConfig

	baseCtx context.Context
	cancel  context.CancelFunc

	onSessionStarted func(sessionID string)
}

// OnSessionStarted registers a callback fired whenever a new backend
// session is created. The dashboard uses it for new-lead pushes.
func (s *ChatService) OnSessionStarted(fn func(sessionID string)) {
	s.onSessionStarted = fn
}

// NewChatService creates the chat service
func NewChatService(client *upstream.Client, hub *messaging.ChatHub, emailService email.Service, logger *logging.ChanneledLogger, perf *performance.Tracker, config ChatServiceConfig) *ChatService {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		sessions: make(map[string]*chat.Session),
		client:   client,
		hub:      hub,
		email:    emailService,
		logger:   logger,
		perf:     perf,
		config:   config,
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
}

// Session returns the state machine for a client, creating it on first
// contact
func (s *ChatService) Session(clientID string) *chat.Session {
	s.mu.RLock()
	session, exists := s.sessions[clientID]
	s.mu.RUnlock()
	if exists {
		return session
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, exists = s.sessions[clientID]; exists {
		return session
	}
	if len(s.sessions) >= s.config.MaxSessions {
		s.evictIdleLocked()
	}
	session = chat.NewSession(clientID)
	s.sessions[clientID] = session
	return session
}

// evictIdleLocked drops the longest-idle session without a live backend
// session. Caller holds the write lock.
func (s *ChatService) evictIdleLocked() {
	var oldestID string
	var oldestTime time.Time
	for id, sess := range s.sessions {
		sess.Mu.Lock()
		idle := sess.State == chat.StateNoSession || sess.State == chat.StateEnded || sess.State == chat.StateExpired
		last := sess.LastActivity
		sess.Mu.Unlock()
		if !idle {
			continue
		}
		if oldestID == "" || last.Before(oldestTime) {
			oldestID = id
			oldestTime = last
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// StartChat begins a new backend session for the client. On failure the
// session stays in the no-session state with an error set; no synthetic
// assistant message is injected, the visitor retries explicitly.
func (s *ChatService) StartChat(ctx context.Context, clientID, initialMessage string) (chat.Snapshot, error) {
	marker := s.perf.StartOperation("chat:start")
	defer marker.Complete()

	session := s.Session(clientID)

	session.Mu.Lock()
	if session.State == chat.StateStarting || session.State == chat.StateReady || session.State == chat.StateSending {
		snap := session.SnapshotLocked()
		session.Mu.Unlock()
		return snap, nil
	}
	session.State = chat.StateStarting
	session.Mu.Unlock()

	resp, err := s.client.StartChat(ctx, upstream.StartChatRequest{InitialMessage: initialMessage})

	session.Mu.Lock()
	defer session.Mu.Unlock()

	if err != nil {
		session.State = chat.StateNoSession
		session.Error = startErrorMessage(err)
		marker.SetError(err)
		s.logger.WithSession(logging.ChannelChat, clientID).Warn("Chat start failed", "error", err.Error())

		snap := session.SnapshotLocked()
		s.publishError(clientID, "", session.Error)
		return snap, err
	}

	session.SessionID = resp.SessionID
	session.State = chat.StateReady
	session.Error = ""
	session.InactivityWarned = false
	session.LastUserText = ""
	session.Messages = session.Messages[:0]
	session.StartedAt = time.Now()
	session.LastActivity = time.Now()

	if initialMessage != "" {
		session.Messages = append(session.Messages, chat.Message{
			ID:        security.GenerateULID(),
			Role:      chat.RoleUser,
			Content:   initialMessage,
			Timestamp: time.Now(),
		})
	}
	welcome := chat.Message{
		ID:        security.GenerateULID(),
		Role:      chat.RoleAssistant,
		Content:   resp.WelcomeMessage,
		Timestamp: time.Now(),
	}
	session.Messages = append(session.Messages, welcome)

	s.startPollerLocked(session)

	marker.SetSuccess(true)
	s.logger.WithSession(logging.ChannelChat, clientID).Info("Chat session started", "backendSession", resp.SessionID)

	event := chat.NewEvent(chat.EventSessionStarted, clientID, resp.SessionID)
	event.Message = &welcome
	s.hub.Publish(event)

	if s.onSessionStarted != nil {
		s.onSessionStarted(resp.SessionID)
	}

	return session.SnapshotLocked(), nil
}

// SendMessage delivers a user message. The user message is appended
// before the network call; a failed send appends a synthetic assistant
// error entry instead of dropping the attempt. An expired session is
// restarted transparently first.
func (s *ChatService) SendMessage(ctx context.Context, clientID, text string) (chat.Snapshot, error) {
	marker := s.perf.StartOperation("chat:send_message")
	defer marker.Complete()

	session := s.Session(clientID)

	session.Mu.Lock()
	if session.State == chat.StateExpired {
		session.Mu.Unlock()
		if _, err := s.restart(ctx, clientID); err != nil {
			marker.SetError(err)
			return s.Session(clientID).Snapshot(), err
		}
		session.Mu.Lock()
	}

	if session.State != chat.StateReady {
		session.Error = "Nenhuma sessao ativa. Inicie o chat primeiro."
		snap := session.SnapshotLocked()
		session.Mu.Unlock()
		marker.SetError(ErrNoActiveSession)
		return snap, ErrNoActiveSession
	}

	sessionID := session.SessionID
	session.State = chat.StateSending
	session.LastUserText = text
	session.InactivityWarned = false // Sending is evidence of activity
	session.LastActivity = time.Now()

	userMsg := chat.Message{
		ID:        security.GenerateULID(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	session.Messages = append(session.Messages, userMsg)
	session.Mu.Unlock()

	event := chat.NewEvent(chat.EventMessageAppended, clientID, sessionID)
	event.Message = &userMsg
	s.hub.Publish(event)

	resp, err := s.client.SendMessage(ctx, upstream.SendMessageRequest{
		SessionID: sessionID,
		Message:   text,
	})

	session.Mu.Lock()
	defer session.Mu.Unlock()
	session.State = chat.StateReady

	var reply chat.Message
	if err != nil {
		session.Error = sendErrorMessage(err)
		reply = chat.Message{
			ID:        security.GenerateULID(),
			Role:      chat.RoleAssistant,
			Content:   "Desculpe, tive um problema para responder. Tente novamente.",
			Timestamp: time.Now(),
			Synthetic: true,
		}
		marker.SetError(err)
		s.logger.WithSession(logging.ChannelChat, clientID).Warn("Message send failed", "error", err.Error())
	} else {
		session.Error = ""
		reply = chat.Message{
			ID:        security.GenerateULID(),
			Role:      chat.RoleAssistant,
			Content:   resp.Message,
			Timestamp: time.Now(),
		}
		marker.SetSuccess(true)
	}
	session.Messages = append(session.Messages, reply)
	session.LastActivity = time.Now()

	event = chat.NewEvent(chat.EventMessageAppended, clientID, sessionID)
	event.Message = &reply
	if err != nil {
		event.Error = session.Error
	}
	s.hub.Publish(event)

	return session.SnapshotLocked(), err
}

// RetryLastMessage removes a trailing synthetic error entry and resends
// the exact text of the last user message. The user message is not
// appended again; it is already in the transcript.
func (s *ChatService) RetryLastMessage(ctx context.Context, clientID string) (chat.Snapshot, error) {
	marker := s.perf.StartOperation("chat:retry_last_message")
	defer marker.Complete()

	session := s.Session(clientID)

	session.Mu.Lock()
	if session.State != chat.StateReady || session.LastUserText == "" {
		snap := session.SnapshotLocked()
		session.Mu.Unlock()
		marker.SetError(ErrNoActiveSession)
		return snap, ErrNoActiveSession
	}

	if n := len(session.Messages); n > 0 && session.Messages[n-1].Synthetic {
		session.Messages = session.Messages[:n-1]
	}

	sessionID := session.SessionID
	text := session.LastUserText
	session.State = chat.StateSending
	session.Error = ""
	session.Mu.Unlock()

	resp, err := s.client.SendMessage(ctx, upstream.SendMessageRequest{
		SessionID: sessionID,
		Message:   text,
	})

	session.Mu.Lock()
	defer session.Mu.Unlock()
	session.State = chat.StateReady
	session.LastActivity = time.Now()

	var reply chat.Message
	if err != nil {
		session.Error = sendErrorMessage(err)
		reply = chat.Message{
			ID:        security.GenerateULID(),
			Role:      chat.RoleAssistant,
			Content:   "Desculpe, tive um problema para responder. Tente novamente.",
			Timestamp: time.Now(),
			Synthetic: true,
		}
		marker.SetError(err)
	} else {
		session.Error = ""
		reply = chat.Message{
			ID:        security.GenerateULID(),
			Role:      chat.RoleAssistant,
			Content:   resp.Message,
			Timestamp: time.Now(),
		}
		marker.SetSuccess(true)
	}
	session.Messages = append(session.Messages, reply)

	event := chat.NewEvent(chat.EventMessageAppended, clientID, sessionID)
	event.Message = &reply
	s.hub.Publish(event)

	return session.SnapshotLocked(), err
}

// EndChat ends the session. The upstream end call is best-effort; local
// state is fully reset either way.
func (s *ChatService) EndChat(ctx context.Context, clientID string) chat.Snapshot {
	marker := s.perf.StartOperation("chat:end")
	defer marker.Complete()

	session := s.Session(clientID)

	session.Mu.Lock()
	sessionID := session.SessionID
	stop := session.StopPoll
	session.Mu.Unlock()

	if sessionID != "" {
		if err := s.client.EndChat(ctx, sessionID); err != nil {
			s.logger.WithSession(logging.ChannelChat, clientID).Debug("Upstream end failed, continuing reset", "error", err.Error())
		}
	}
	if stop != nil {
		stop()
	}

	session.Mu.Lock()
	defer session.Mu.Unlock()
	session.SessionID = ""
	session.State = chat.StateEnded
	session.Messages = session.Messages[:0]
	session.LastUserText = ""
	session.Error = ""
	session.InactivityWarned = false
	session.StopPoll = nil
	session.LastActivity = time.Now()

	marker.SetSuccess(true)
	s.hub.Publish(chat.NewEvent(chat.EventSessionEnded, clientID, sessionID))

	return session.SnapshotLocked()
}

// SaveConversation asks the backend to persist the transcript. Requires
// an active session.
func (s *ChatService) SaveConversation(ctx context.Context, clientID, email string) (bool, error) {
	session := s.Session(clientID)

	session.Mu.Lock()
	sessionID := session.SessionID
	session.Mu.Unlock()

	if sessionID == "" {
		s.setError(session, "Nenhuma conversa para salvar.")
		return false, ErrNoActiveSession
	}

	ok, err := s.client.SaveConversation(ctx, upstream.SaveConversationRequest{SessionID: sessionID, Email: email})
	if err != nil {
		s.setError(session, fmt.Sprintf("Erro ao salvar conversa: %v", err))
		return false, err
	}

	session.Mu.Lock()
	session.SaveRequested = true
	session.Mu.Unlock()
	return ok, nil
}

// SendConversationEmail asks the backend to email the transcript.
// Requires an active session.
func (s *ChatService) SendConversationEmail(ctx context.Context, clientID, email string) (bool, error) {
	session := s.Session(clientID)

	session.Mu.Lock()
	sessionID := session.SessionID
	session.Mu.Unlock()

	if sessionID == "" {
		s.setError(session, "Nenhuma conversa para enviar.")
		return false, ErrNoActiveSession
	}

	ok, err := s.client.SendConversationEmail(ctx, upstream.SaveConversationRequest{SessionID: sessionID, Email: email})
	if err != nil {
		// When the backend is unreachable the transcript is still here;
		// deliver it directly if outbound email is configured.
		if upstream.IsConnectivityError(err) && s.email != nil && email != "" {
			if sendErr := s.emailTranscript(session, email); sendErr == nil {
				s.logger.WithSession(logging.ChannelChat, clientID).Info("Transcript delivered directly, backend unreachable")
				session.Mu.Lock()
				session.EmailRequested = true
				session.Mu.Unlock()
				return true, nil
			}
		}
		s.setError(session, fmt.Sprintf("Erro ao enviar email: %v", err))
		return false, err
	}

	session.Mu.Lock()
	session.EmailRequested = true
	session.Mu.Unlock()
	return ok, nil
}

// emailTranscript sends the locally held transcript through the email
// service. Synthetic error entries are not part of the conversation.
func (s *ChatService) emailTranscript(session *chat.Session, toEmail string) error {
	session.Mu.Lock()
	messages := make([]templates.ExportMessage, 0, len(session.Messages))
	for _, msg := range session.Messages {
		if msg.Synthetic {
			continue
		}
		messages = append(messages, templates.ExportMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	session.Mu.Unlock()

	return s.email.SendConversationExport(toEmail, messages)
}

// ClearError clears the session's error slot
func (s *ChatService) ClearError(clientID string) {
	session := s.Session(clientID)
	session.Mu.Lock()
	session.Error = ""
	sessionID := session.SessionID
	session.Mu.Unlock()
	s.hub.Publish(chat.NewEvent(chat.EventErrorCleared, clientID, sessionID))
}

// Shutdown stops every inactivity poller
func (s *ChatService) Shutdown() {
	s.cancel()
}

// restart ends the current session locally and starts a fresh one. Used
// for transparent recovery after the backend expires a session.
func (s *ChatService) restart(ctx context.Context, clientID string) (chat.Snapshot, error) {
	session := s.Session(clientID)

	session.Mu.Lock()
	oldID := session.SessionID
	stop := session.StopPoll
	session.SessionID = ""
	session.State = chat.StateNoSession
	session.Messages = session.Messages[:0]
	session.LastUserText = ""
	session.InactivityWarned = false
	session.StopPoll = nil
	session.Mu.Unlock()

	if stop != nil {
		stop()
	}

	snap, err := s.StartChat(ctx, clientID, "")
	if err == nil {
		s.hub.Publish(chat.NewEvent(chat.EventSessionRestarted, clientID, snap.SessionID))
		s.logger.WithSession(logging.ChannelChat, clientID).Info("Session restarted after expiry", "previousSession", oldID)
	}
	return snap, err
}

// startPollerLocked launches the inactivity poller for a session. The
// caller holds the session lock.
func (s *ChatService) startPollerLocked(session *chat.Session) {
	if session.StopPoll != nil {
		session.StopPoll()
	}
	pollCtx, stop := context.WithCancel(s.baseCtx)
	session.StopPoll = stop
	go s.pollInactivity(pollCtx, session.ClientID, session.SessionID)
}

// pollInactivity checks the backend's view of the session on a fixed
// interval. A warning is surfaced once per activity cycle; a not-found
// answer triggers transparent restart.
func (s *ChatService) pollInactivity(ctx context.Context, clientID, sessionID string) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		session := s.Session(clientID)
		session.Mu.Lock()
		stillCurrent := session.SessionID == sessionID && session.State == chat.StateReady
		session.Mu.Unlock()
		if !stillCurrent {
			continue
		}

		status, err := s.client.CheckInactivity(ctx, sessionID)
		if err != nil {
			if upstream.StatusOf(err) == http.StatusNotFound {
				s.handleExpiry(ctx, clientID, sessionID)
				return
			}
			s.logger.WithSession(logging.ChannelChat, clientID).Debug("Inactivity check failed", "error", err.Error())
			continue
		}

		if !status.SessionActive {
			s.handleExpiry(ctx, clientID, sessionID)
			return
		}

		if status.ShouldWarn {
			s.raiseWarning(clientID, sessionID, status)
		}
	}
}

// raiseWarning stores and appends the inactivity warning, once per cycle
func (s *ChatService) raiseWarning(clientID, sessionID string, status *upstream.InactivityStatus) {
	session := s.Session(clientID)

	session.Mu.Lock()
	if session.InactivityWarned || session.SessionID != sessionID {
		session.Mu.Unlock()
		return
	}
	session.InactivityWarned = true

	text := status.WarningMessage
	if text == "" {
		text = fmt.Sprintf("Voce ainda esta ai? A sessao expira em %d minutos.", status.MinutesRemaining)
	}
	warning := chat.Message{
		ID:        security.GenerateULID(),
		Role:      chat.RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
	}
	session.Messages = append(session.Messages, warning)
	session.Mu.Unlock()

	event := chat.NewEvent(chat.EventWarningRaised, clientID, sessionID)
	event.Warning = text
	event.Message = &warning
	s.hub.Publish(event)
	s.logger.WithSession(logging.ChannelChat, clientID).Info("Inactivity warning raised")
}

// handleExpiry marks the session expired and restarts it transparently.
// The visitor sees a fresh transcript with a new welcome message.
func (s *ChatService) handleExpiry(ctx context.Context, clientID, sessionID string) {
	session := s.Session(clientID)

	session.Mu.Lock()
	if session.SessionID != sessionID {
		session.Mu.Unlock()
		return
	}
	session.State = chat.StateExpired
	session.Mu.Unlock()

	s.hub.Publish(chat.NewEvent(chat.EventSessionExpired, clientID, sessionID))

	if _, err := s.restart(ctx, clientID); err != nil {
		s.logger.WithSession(logging.ChannelChat, clientID).Warn("Auto-restart after expiry failed", "error", err.Error())
		return
	}

	// The expiry notice is shown over the fresh session and clears
	// itself shortly after.
	s.setError(session, "Sua sessao expirou. Iniciando uma nova conversa...")
	time.AfterFunc(s.config.NoticeClearance, func() {
		s.ClearError(clientID)
	})
}

func (s *ChatService) setError(session *chat.Session, msg string) {
	session.Mu.Lock()
	session.Error = msg
	clientID := session.ClientID
	sessionID := session.SessionID
	session.Mu.Unlock()
	s.publishError(clientID, sessionID, msg)
}

func (s *ChatService) publishError(clientID, sessionID, msg string) {
	event := chat.NewEvent(chat.EventErrorRaised, clientID, sessionID)
	event.Error = msg
	s.hub.Publish(event)
}

// startErrorMessage distinguishes connectivity failures from
// API-reported ones in the surfaced error string
func startErrorMessage(err error) string {
	if upstream.IsConnectivityError(err) {
		return errStartChat + " nao foi possivel conectar ao servidor."
	}
	return fmt.Sprintf("%s %v", errStartChat, err)
}

func sendErrorMessage(err error) string {
	if upstream.IsConnectivityError(err) {
		return errSendMessage + " nao foi possivel conectar ao servidor."
	}
	return fmt.Sprintf("%s %v", errSendMessage, err)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hall-dev/halldev-go/internal/domain/entities/chat"
	"github.com/hall-dev/halldev-go/internal/infrastructure/caching/stores"
	"github.com/hall-dev/halldev-go/internal/infrastructure/email"
	"github.com/hall-dev/halldev-go/internal/infrastructure/email/templates"
	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{})
	require.NoError(t, err)
	return logger
}

func newUpstream(t *testing.T, baseURL string) *upstream.Client {
	t.Helper()
	return upstream.NewClient(upstream.Config{
		BaseURL:           baseURL,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        0,
		RetryBaseDelay:    time.Millisecond,
		BackoffMultiplier: 2.0,
	}, stores.NewResponseStore(5*time.Minute, 50), quietLogger(t))
}

func newChatService(t *testing.T, baseURL string) *ChatService {
	t.Helper()
	return newChatServiceWith(t, baseURL, nil, ChatServiceConfig{
		PollInterval:    time.Hour, // pollers stay quiet during tests
		NoticeClearance: 10 * time.Millisecond,
		MaxSessions:     100,
	})
}

func newChatServiceWith(t *testing.T, baseURL string, emailService email.Service, config ChatServiceConfig) *ChatService {
	t.Helper()
	logger := quietLogger(t)
	svc := NewChatService(newUpstream(t, baseURL), messaging.NewChatHub(logger), emailService, logger, performance.NewTracker(nil), config)
	t.Cleanup(svc.Shutdown)
	return svc
}

func chatBackend(t *testing.T, sendFails *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"session_id":      "sess-1",
			"welcome_message": "Ola! Como posso ajudar?",
		})
	})
	mux.HandleFunc("/chat/message", func(w http.ResponseWriter, r *http.Request) {
		if sendFails != nil && sendFails.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]string{
			"message": "echo: " + req["message"].(string),
		})
	})
	mux.HandleFunc("/chat/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/chat/save-conversation", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	mux.HandleFunc("/chat/send-email", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStartChatStoresWelcomeAsFirstAssistantMessage(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	snap, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	assert.Equal(t, chat.StateReady, snap.State)
	assert.Equal(t, "sess-1", snap.SessionID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, chat.RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, "Ola! Como posso ajudar?", snap.Messages[0].Content)
}

func TestStartChatWithInitialMessagePutsUserFirst(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	snap, err := svc.StartChat(context.Background(), "client-1", "Oi, quero saber mais")
	require.NoError(t, err)

	require.Len(t, snap.Messages, 2)
	assert.Equal(t, chat.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "Oi, quero saber mais", snap.Messages[0].Content)
	assert.Equal(t, chat.RoleAssistant, snap.Messages[1].Role)
}

func TestStartChatFailureInjectsNoSyntheticMessage(t *testing.T) {
	svc := newChatService(t, "http://127.0.0.1:1")

	snap, err := svc.StartChat(context.Background(), "client-1", "")
	require.Error(t, err)

	assert.Equal(t, chat.StateNoSession, snap.State)
	assert.Empty(t, snap.Messages, "no fallback assistant message on start failure")
	assert.Contains(t, snap.Error, "Erro ao iniciar chat:")
}

func TestSendMessageAppendsOptimisticallyAndEchoes(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	snap, err := svc.SendMessage(context.Background(), "client-1", "ola")
	require.NoError(t, err)

	require.Len(t, snap.Messages, 3) // welcome, user, reply
	assert.Equal(t, chat.RoleUser, snap.Messages[1].Role)
	assert.Equal(t, "ola", snap.Messages[1].Content)
	assert.Equal(t, "echo: ola", snap.Messages[2].Content)
	assert.Equal(t, chat.StateReady, snap.State)
}

func TestSendMessageWithoutSessionFails(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	snap, err := svc.SendMessage(context.Background(), "client-1", "ola")
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.Empty(t, snap.Messages)
	assert.NotEmpty(t, snap.Error)
}

func TestSendFailureAppendsSyntheticAssistantError(t *testing.T) {
	var fails atomic.Bool
	srv := chatBackend(t, &fails)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	fails.Store(true)
	snap, err := svc.SendMessage(context.Background(), "client-1", "ola")
	require.Error(t, err)

	require.Len(t, snap.Messages, 3)
	assert.Equal(t, chat.RoleUser, snap.Messages[1].Role, "user message stays in the transcript")
	assert.True(t, snap.Messages[2].Synthetic)
	assert.Equal(t, chat.RoleAssistant, snap.Messages[2].Role)
	assert.Contains(t, snap.Error, "Erro ao enviar mensagem:")
	assert.Equal(t, chat.StateReady, snap.State)
}

func TestRetryLastMessageDropsSyntheticAndResends(t *testing.T) {
	var fails atomic.Bool
	srv := chatBackend(t, &fails)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	fails.Store(true)
	_, err = svc.SendMessage(context.Background(), "client-1", "pergunta importante")
	require.Error(t, err)

	fails.Store(false)
	snap, err := svc.RetryLastMessage(context.Background(), "client-1")
	require.NoError(t, err)

	// welcome, user, real reply; the synthetic entry is gone and the
	// user message was not duplicated.
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "pergunta importante", snap.Messages[1].Content)
	assert.Equal(t, "echo: pergunta importante", snap.Messages[2].Content)
	assert.False(t, snap.Messages[2].Synthetic)
	assert.Empty(t, snap.Error)
}

func TestEndChatResetsEverything(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), "client-1", "ola")
	require.NoError(t, err)

	snap := svc.EndChat(context.Background(), "client-1")
	assert.Equal(t, chat.StateEnded, snap.State)
	assert.Empty(t, snap.SessionID)
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Error)
}

func TestEndedSessionCanStartFresh(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)
	svc.EndChat(context.Background(), "client-1")

	snap, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)
	assert.Equal(t, chat.StateReady, snap.State)
	require.Len(t, snap.Messages, 1)
}

func TestExpiredSessionRestartsTransparentlyOnSend(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	session := svc.Session("client-1")
	session.Mu.Lock()
	session.State = chat.StateExpired
	session.Mu.Unlock()

	snap, err := svc.SendMessage(context.Background(), "client-1", "ainda ai?")
	require.NoError(t, err)

	assert.Equal(t, chat.StateReady, snap.State)
	// Fresh welcome, then the user message and its reply.
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "ainda ai?", snap.Messages[1].Content)
}

func TestSaveConversationRequiresSession(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	ok, err := svc.SaveConversation(context.Background(), "client-1", "ana@x.com")
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.False(t, ok)

	_, err = svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	ok, err = svc.SaveConversation(context.Background(), "client-1", "ana@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSendConversationEmailRequiresSession(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	ok, err := svc.SendConversationEmail(context.Background(), "client-1", "ana@x.com")
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.False(t, ok)

	_, err = svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	ok, err = svc.SendConversationEmail(context.Background(), "client-1", "ana@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

// transcriptRecorder captures outbound email instead of sending it
type transcriptRecorder struct {
	to       string
	messages []templates.ExportMessage
}

func (r *transcriptRecorder) SendContactConfirmation(toEmail, name, message string) error {
	return nil
}

func (r *transcriptRecorder) SendConversationExport(toEmail string, messages []templates.ExportMessage) error {
	r.to = toEmail
	r.messages = messages
	return nil
}

func TestEmailFallsBackToDirectDeliveryWhenBackendUnreachable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"session_id":      "sess-1",
			"welcome_message": "Ola! Como posso ajudar?",
		})
	})
	mux.HandleFunc("/chat/send-email", func(w http.ResponseWriter, r *http.Request) {
		// Drop the connection mid-request so the client sees a
		// transport failure, not an HTTP status.
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	recorder := &transcriptRecorder{}
	svc := newChatServiceWith(t, srv.URL, recorder, ChatServiceConfig{
		PollInterval:    time.Hour,
		NoticeClearance: 10 * time.Millisecond,
		MaxSessions:     100,
	})

	_, err := svc.StartChat(context.Background(), "client-1", "Oi, quero saber mais")
	require.NoError(t, err)

	ok, err := svc.SendConversationEmail(context.Background(), "client-1", "ana@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "ana@x.com", recorder.to)
	require.Len(t, recorder.messages, 2)
	assert.Equal(t, string(chat.RoleUser), recorder.messages[0].Role)
	assert.Equal(t, "Oi, quero saber mais", recorder.messages[0].Content)
	assert.Equal(t, string(chat.RoleAssistant), recorder.messages[1].Role)

	snap := svc.Session("client-1").Snapshot()
	assert.Empty(t, snap.Error, "direct delivery succeeded, no error surfaced")
}

func TestEmailFailureSurfacesWhenNoDirectDelivery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"session_id":      "sess-1",
			"welcome_message": "Ola!",
		})
	})
	mux.HandleFunc("/chat/send-email", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := newChatService(t, srv.URL) // no email service configured

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	ok, err := svc.SendConversationEmail(context.Background(), "client-1", "ana@x.com")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, svc.Session("client-1").Snapshot().Error, "Erro ao enviar email:")
}

func TestInactivityWarningAppendsOnceThenExpiryRestarts(t *testing.T) {
	var startCount, checkCount atomic.Int64
	allowExpire := make(chan struct{})
	var expireOnce sync.Once
	releaseExpiry := func() { expireOnce.Do(func() { close(allowExpire) }) }

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"session_id":      fmt.Sprintf("sess-%d", startCount.Add(1)),
			"welcome_message": "Ola! Como posso ajudar?",
		})
	})
	mux.HandleFunc("/chat/inactivity-check/", func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimPrefix(r.URL.Path, "/chat/inactivity-check/")
		if sessionID != "sess-1" {
			json.NewEncoder(w).Encode(map[string]any{"session_active": true})
			return
		}
		switch checkCount.Add(1) {
		case 1, 2:
			json.NewEncoder(w).Encode(map[string]any{
				"should_warn":     true,
				"warning_message": "Voce ainda esta ai?",
				"session_active":  true,
			})
		default:
			<-allowExpire
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/chat/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(releaseExpiry) // unblock the handler before the server closes

	svc := newChatServiceWith(t, srv.URL, nil, ChatServiceConfig{
		PollInterval:    20 * time.Millisecond,
		NoticeClearance: 20 * time.Millisecond,
		MaxSessions:     100,
	})

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	// The first should_warn answer appends the warning.
	require.Eventually(t, func() bool {
		return len(svc.Session("client-1").Snapshot().Messages) == 2
	}, 2*time.Second, 5*time.Millisecond)
	snap := svc.Session("client-1").Snapshot()
	assert.Equal(t, chat.RoleAssistant, snap.Messages[1].Role)
	assert.Equal(t, "Voce ainda esta ai?", snap.Messages[1].Content)

	// The second should_warn answer must not append another one.
	require.Eventually(t, func() bool {
		return checkCount.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, svc.Session("client-1").Snapshot().Messages, 2, "warning raised once per activity cycle")

	// A not-found answer triggers a transparent restart onto a fresh
	// session with a new welcome.
	releaseExpiry()
	require.Eventually(t, func() bool {
		s := svc.Session("client-1").Snapshot()
		return s.SessionID == "sess-2" && s.State == chat.StateReady
	}, 2*time.Second, 5*time.Millisecond)

	snap = svc.Session("client-1").Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, chat.RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, "Ola! Como posso ajudar?", snap.Messages[0].Content)

	// The expiry notice clears itself shortly after.
	require.Eventually(t, func() bool {
		return svc.Session("client-1").Snapshot().Error == ""
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClearError(t *testing.T) {
	svc := newChatService(t, "http://127.0.0.1:1")

	snap, _ := svc.StartChat(context.Background(), "client-1", "")
	require.NotEmpty(t, snap.Error)

	svc.ClearError("client-1")
	assert.Empty(t, svc.Session("client-1").Snapshot().Error)
}

func TestTranscriptIsAppendOnlyAndAlternates(t *testing.T) {
	srv := chatBackend(t, nil)
	svc := newChatService(t, srv.URL)

	_, err := svc.StartChat(context.Background(), "client-1", "")
	require.NoError(t, err)

	for _, text := range []string{"um", "dois", "tres"} {
		_, err = svc.SendMessage(context.Background(), "client-1", text)
		require.NoError(t, err)
	}

	snap := svc.Session("client-1").Snapshot()
	require.Len(t, snap.Messages, 7)
	for i := 1; i < len(snap.Messages); i += 2 {
		assert.Equal(t, chat.RoleUser, snap.Messages[i].Role)
		assert.Equal(t, chat.RoleAssistant, snap.Messages[i+1].Role)
	}
}

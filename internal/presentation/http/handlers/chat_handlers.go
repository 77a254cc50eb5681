// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/services"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
	"github.com/hall-dev/halldev-go/internal/presentation/http/middleware"
)

// ChatHandlers exposes the chat widget's session operations
type ChatHandlers struct {
	chatService *services.ChatService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewChatHandlers creates chat handlers with injected dependencies
func NewChatHandlers(chatService *services.ChatService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type startChatRequest struct {
	InitialMessage string `json:"initial_message"`
}

// PostStart handles POST /api/v1/chat/start
func (h *ChatHandlers) PostStart(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	// An empty body is fine; anything unparseable is not.
	var req startChatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
	}

	snap, err := h.chatService.StartChat(c.Request.Context(), clientID, req.InitialMessage)
	if err != nil {
		c.JSON(statusForUpstream(err), snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// PostMessage handles POST /api/v1/chat/message
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	snap, err := h.chatService.SendMessage(c.Request.Context(), clientID, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, snap)
			return
		}
		// The synthetic error entry is already in the transcript; the
		// widget renders it from the snapshot.
		c.JSON(http.StatusOK, snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PostRetry handles POST /api/v1/chat/retry
func (h *ChatHandlers) PostRetry(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	snap, err := h.chatService.RetryLastMessage(c.Request.Context(), clientID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, snap)
			return
		}
		c.JSON(http.StatusOK, snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PostEnd handles POST /api/v1/chat/end
func (h *ChatHandlers) PostEnd(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	snap := h.chatService.EndChat(c.Request.Context(), clientID)
	c.JSON(http.StatusOK, snap)
}

// GetSession handles GET /api/v1/chat/session
func (h *ChatHandlers) GetSession(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	c.JSON(http.StatusOK, h.chatService.Session(clientID).Snapshot())
}

type exportRequest struct {
	Email string `json:"email"`
}

// PostSave handles POST /api/v1/chat/save
func (h *ChatHandlers) PostSave(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req exportRequest
	_ = c.ShouldBindJSON(&req)

	ok, err := h.chatService.SaveConversation(c.Request.Context(), clientID, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "no active session"})
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// PostEmail handles POST /api/v1/chat/email
func (h *ChatHandlers) PostEmail(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req exportRequest
	_ = c.ShouldBindJSON(&req)

	ok, err := h.chatService.SendConversationEmail(c.Request.Context(), clientID, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "no active session"})
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// PostClearError handles POST /api/v1/chat/clear-error
func (h *ChatHandlers) PostClearError(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	h.chatService.ClearError(clientID)
	c.Status(http.StatusNoContent)
}

// statusForUpstream maps an upstream failure to the status returned to
// the browser: API errors pass through, connectivity is a bad gateway.
func statusForUpstream(err error) int {
	if status := upstream.StatusOf(err); status != 0 {
		return status
	}
	return http.StatusBadGateway
}

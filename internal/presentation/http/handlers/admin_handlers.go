package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/services"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/presentation/http/middleware"
)

// AdminHandlers exposes admin session management
type AdminHandlers struct {
	adminService *services.AdminService
	sessionTTL   time.Duration
	logger       *logging.ChanneledLogger
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(adminService *services.AdminService, sessionTTL time.Duration, logger *logging.ChanneledLogger) *AdminHandlers {
	return &AdminHandlers{
		adminService: adminService,
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
}

type adminLoginRequest struct {
	Token string `json:"token"`
}

// PostSession handles POST /api/v1/admin/session, exchanging the admin
// access token for a session JWT. The token also arrives as the `admin`
// query parameter when the dashboard is opened from a link.
func (h *AdminHandlers) PostSession(c *gin.Context) {
	var req adminLoginRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		req.Token = c.Query("admin")
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin token is required"})
		return
	}

	jwtToken, err := h.adminService.Login(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAdminToken) {
			h.logger.Auth().Warn("Admin login rejected", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AdminSessionCookie(), jwtToken, int(h.sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": jwtToken})
}

// DeleteSession handles DELETE /api/v1/admin/session. The dashboard
// calls this when the admin presses Escape.
func (h *AdminHandlers) DeleteSession(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	} else {
		token, _ = c.Cookie(middleware.AdminSessionCookie())
	}

	if token != "" {
		if err := h.adminService.Logout(c.Request.Context(), token); err != nil {
			h.logger.Auth().Debug("Admin logout with invalid session", "error", err.Error())
		}
	}

	c.SetCookie(middleware.AdminSessionCookie(), "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/services"
	"github.com/hall-dev/halldev-go/internal/domain/entities/leads"
	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
)

// DashboardHandlers exposes the admin lead dashboard
type DashboardHandlers struct {
	dashboardService *services.DashboardService
	broadcaster      *messaging.SSEBroadcaster
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewDashboardHandlers creates dashboard handlers with injected dependencies
func NewDashboardHandlers(dashboardService *services.DashboardService, broadcaster *messaging.SSEBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DashboardHandlers {
	return &DashboardHandlers{
		dashboardService: dashboardService,
		broadcaster:      broadcaster,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// GetDashboard handles GET /api/v1/dashboard, loading everything fresh
func (h *DashboardHandlers) GetDashboard(c *gin.Context) {
	view, err := h.dashboardService.Load(c.Request.Context())
	if err != nil {
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

type filterRequest struct {
	Query      string  `json:"query"`
	Status     *string `json:"status"`
	HasContact *bool   `json:"hasContact"`
}

// PutFilter handles PUT /api/v1/dashboard/filter
func (h *DashboardHandlers) PutFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	var status *leads.Status
	if req.Status != nil && *req.Status != "" {
		s := leads.Status(*req.Status)
		if !leads.ValidStatus(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status: %s", s)})
			return
		}
		status = &s
	}

	c.JSON(http.StatusOK, h.dashboardService.SetFilter(req.Query, status, req.HasContact))
}

type pageRequest struct {
	Page int `json:"page" binding:"required"`
}

// PutPage handles PUT /api/v1/dashboard/page
func (h *DashboardHandlers) PutPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page is required"})
		return
	}
	c.JSON(http.StatusOK, h.dashboardService.SetPage(req.Page))
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// PutLeadStatus handles PUT /api/v1/dashboard/leads/:sessionId/status
func (h *DashboardHandlers) PutLeadStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	view, err := h.dashboardService.UpdateLeadStatus(c.Request.Context(), sessionID, leads.Status(req.Status))
	if err != nil {
		// The view reflects the rollback; the widget re-renders from it.
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error(), "view": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

// PutNotificationRead handles PUT /api/v1/dashboard/notifications/:id/read
func (h *DashboardHandlers) PutNotificationRead(c *gin.Context) {
	view, err := h.dashboardService.MarkNotificationRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetConversation handles GET /api/v1/dashboard/conversations/:sessionId
func (h *DashboardHandlers) GetConversation(c *gin.Context) {
	detail, err := h.dashboardService.ConversationDetail(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetEvents handles GET /api/v1/dashboard/events, streaming dashboard
// pushes over SSE
func (h *DashboardHandlers) GetEvents(c *gin.Context) {
	ch := h.broadcaster.AddClient()
	if ch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many open dashboards"})
		return
	}
	defer h.broadcaster.RemoveClient(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("dashboard", payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

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

// SiteHandlers exposes the presentational shell's operations
type SiteHandlers struct {
	siteService       *services.SiteService
	suggestionService *services.SuggestionService
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewSiteHandlers creates site handlers with injected dependencies
func NewSiteHandlers(siteService *services.SiteService, suggestionService *services.SuggestionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SiteHandlers {
	return &SiteHandlers{
		siteService:       siteService,
		suggestionService: suggestionService,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

type suggestRequest struct {
	Text string `json:"text"`
}

// PostSuggest handles POST /api/v1/suggest. Superseded requests answer
// 204 so the widget keeps whatever newer response arrives.
func (h *SiteHandlers) PostSuggest(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	suggestions, err := h.suggestionService.Suggest(c.Request.Context(), clientID, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrSuperseded) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// GetContent handles GET /api/v1/content/:id
func (h *SiteHandlers) GetContent(c *gin.Context) {
	item, err := h.siteService.Content(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, item)
}

type contactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Message      string `json:"message"`
	SuggestionID string `json:"suggestion_id"`
}

// PostContact handles POST /api/v1/contact
func (h *SiteHandlers) PostContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	err := h.siteService.SubmitContact(c.Request.Context(), upstream.ContactRequest{
		Name:         req.Name,
		Email:        req.Email,
		Message:      req.Message,
		SuggestionID: req.SuggestionID,
	})
	if err != nil {
		if upstream.StatusOf(err) == 0 && !upstream.IsConnectivityError(err) {
			// Local validation failed before any network call.
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetIntro handles GET /api/v1/site/intro
func (h *SiteHandlers) GetIntro(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	shown, err := h.siteService.IntroShown(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shown": shown})
}

// PostIntro handles POST /api/v1/site/intro, marking the intro animation
// as seen for this browser
func (h *SiteHandlers) PostIntro(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	if err := h.siteService.MarkIntroShown(c.Request.Context(), clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shown": true})
}

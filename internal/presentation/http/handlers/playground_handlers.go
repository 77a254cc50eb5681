package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/services"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/presentation/http/middleware"
)

// PlaygroundHandlers exposes the transcription/summarization playground
type PlaygroundHandlers struct {
	playgroundService *services.PlaygroundService
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewPlaygroundHandlers creates playground handlers with injected dependencies
func NewPlaygroundHandlers(playgroundService *services.PlaygroundService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PlaygroundHandlers {
	return &PlaygroundHandlers{
		playgroundService: playgroundService,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// GetRegistration handles GET /api/v1/playground/registration
func (h *PlaygroundHandlers) GetRegistration(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	reg := h.playgroundService.Registration(c.Request.Context(), clientID)
	c.JSON(http.StatusOK, gin.H{"registered": reg != nil, "registration": reg})
}

type registerRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Company string `json:"company"`
}

// PostRegister handles POST /api/v1/playground/register
func (h *PlaygroundHandlers) PostRegister(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	reg, err := h.playgroundService.Register(c.Request.Context(), clientID, req.Name, req.Email, req.Company)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reg)
}

type transcribeRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
}

// PostTranscribe handles POST /api/v1/playground/transcribe
func (h *PlaygroundHandlers) PostTranscribe(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
		return
	}

	result, err := h.playgroundService.Transcribe(c.Request.Context(), clientID, req.VideoURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRegistrationRequired):
			// The widget shows the registration modal instead of an error.
			c.JSON(http.StatusForbidden, gin.H{"registration_required": true})
		case errors.Is(err, services.ErrInvalidVideoURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

type summarizeRequest struct {
	Context  string   `json:"context"`
	Keywords []string `json:"keywords"`
}

// PostSummarize handles POST /api/v1/playground/summarize
func (h *PlaygroundHandlers) PostSummarize(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req summarizeRequest
	_ = c.ShouldBindJSON(&req)

	summary, err := h.playgroundService.Summarize(c.Request.Context(), clientID, req.Context, req.Keywords)
	if err != nil {
		if errors.Is(err, services.ErrNoTranscript) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetCurrent handles GET /api/v1/playground/current
func (h *PlaygroundHandlers) GetCurrent(c *gin.Context) {
	clientID := middleware.GetClientID(c)
	transcription, summary := h.playgroundService.Current(clientID)
	c.JSON(http.StatusOK, gin.H{"transcription": transcription, "summary": summary})
}

// GetSegment handles GET /api/v1/playground/segment?offset=42.5
func (h *PlaygroundHandlers) GetSegment(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	offset, err := strconv.ParseFloat(c.Query("offset"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a number of seconds"})
		return
	}
	c.JSON(http.StatusOK, h.playgroundService.SegmentAt(clientID, offset))
}

// GetKeywords handles GET /api/v1/playground/keywords
func (h *PlaygroundHandlers) GetKeywords(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, gin.H{"keywords": h.playgroundService.KeywordSuggestions(clientID, limit)})
}

type playgroundExportRequest struct {
	Format string `json:"format"`
}

// PostExport handles POST /api/v1/playground/export
func (h *PlaygroundHandlers) PostExport(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	var req playgroundExportRequest
	_ = c.ShouldBindJSON(&req)

	text, err := h.playgroundService.Export(c.Request.Context(), clientID, req.Format)
	if err != nil {
		if errors.Is(err, services.ErrNoTranscript) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(statusForUpstream(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": text})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/infrastructure/media"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
)

// MediaHandlers serves optimized site imagery
type MediaHandlers struct {
	processor *media.ImageProcessor
	logger    *logging.ChanneledLogger
}

// NewMediaHandlers creates media handlers with injected dependencies
func NewMediaHandlers(processor *media.ImageProcessor, logger *logging.ChanneledLogger) *MediaHandlers {
	return &MediaHandlers{processor: processor, logger: logger}
}

// GetImage handles GET /media/images/:name?w=800, resizing and
// converting to WebP on first request
func (h *MediaHandlers) GetImage(c *gin.Context) {
	name := c.Param("name")
	width, _ := strconv.Atoi(c.Query("w"))

	path, err := h.processor.OptimizedPath(name, width)
	if err != nil {
		h.logger.System().Debug("Image optimization failed", "name", name, "error", err.Error())
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}

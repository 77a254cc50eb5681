// Package media provides image processing utilities
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ImageProcessor serves hero and poster images resized and re-encoded
// as webp. Processed variants are written next to the originals and
// reused on subsequent requests.
type ImageProcessor struct {
	basePath string // Root directory holding source images
	maxWidth int
	quality  float32
	mu       sync.Mutex
}

// NewImageProcessor creates a new ImageProcessor instance
func NewImageProcessor(basePath string, maxWidth int, quality float32) *ImageProcessor {
	return &ImageProcessor{
		basePath: basePath,
		maxWidth: maxWidth,
		quality:  quality,
	}
}

// OptimizedPath returns the path to a webp variant of the named image
// at the requested width, generating it on first use. Width is clamped
// to the configured maximum; zero means the maximum.
func (p *ImageProcessor) OptimizedPath(name string, width int) (string, error) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("invalid image name: %s", name)
	}

	if width <= 0 || width > p.maxWidth {
		width = p.maxWidth
	}

	sourcePath := filepath.Join(p.basePath, name)
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("image not found: %w", err)
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	variantDir := filepath.Join(p.basePath, "optimized")
	variantPath := filepath.Join(variantDir, fmt.Sprintf("%s-%dw.webp", base, width))

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(variantPath); err == nil {
		return variantPath, nil
	}

	if err := os.MkdirAll(variantDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create variant directory: %w", err)
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	out, err := os.Create(variantPath)
	if err != nil {
		return "", fmt.Errorf("failed to create variant file: %w", err)
	}
	defer out.Close()

	if err := webp.Encode(out, img, &webp.Options{Quality: p.quality}); err != nil {
		os.Remove(variantPath)
		return "", fmt.Errorf("failed to encode webp: %w", err)
	}

	return variantPath, nil
}

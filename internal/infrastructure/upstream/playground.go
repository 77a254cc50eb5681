package upstream

import (
	"context"
	"net/http"

	"github.com/hall-dev/halldev-go/internal/domain/entities/playground"
)

// TranscribeRequest asks the backend to transcribe a YouTube video
type TranscribeRequest struct {
	VideoURL string `json:"video_url"`
}

// TranscribeResponse is the backend's transcription result
type TranscribeResponse struct {
	VideoID    string               `json:"video_id"`
	VideoURL   string               `json:"video_url"`
	Title      string               `json:"title,omitempty"`
	Transcript string               `json:"transcript"`
	Language   string               `json:"language,omitempty"`
	Duration   float64              `json:"duration,omitempty"`
	Segments   []playground.Segment `json:"segments,omitempty"`
}

// Transcribe calls POST /playground/transcribe
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error) {
	var resp TranscribeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/playground/transcribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SummarizeRequest asks the backend to summarize a transcript
type SummarizeRequest struct {
	Transcript string   `json:"transcript"`
	Context    string   `json:"context,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// SummarizeResponse is the backend's summary result
type SummarizeResponse struct {
	Summary       string               `json:"summary"`
	KeyPoints     []string             `json:"key_points,omitempty"`
	KeywordsFound []string             `json:"keywords_found,omitempty"`
	Sections      []playground.Section `json:"sections,omitempty"`
	Confidence    float64              `json:"confidence"`
	WasTruncated  bool                 `json:"was_truncated"`
}

// Summarize calls POST /playground/summarize
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	var resp SummarizeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/playground/summarize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterLeadRequest is the best-effort playground analytics call
type RegisterLeadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	VideoID string `json:"video_id,omitempty"`
}

// RegisterLead calls POST /playground/register-lead
func (c *Client) RegisterLead(ctx context.Context, req RegisterLeadRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/playground/register-lead", req, nil)
}

// UpdateExportRequest records an export action for analytics
type UpdateExportRequest struct {
	Email   string `json:"email"`
	VideoID string `json:"video_id,omitempty"`
	Format  string `json:"format,omitempty"`
}

// UpdateExport calls POST /playground/update-export
func (c *Client) UpdateExport(ctx context.Context, req UpdateExportRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/playground/update-export", req, nil)
}

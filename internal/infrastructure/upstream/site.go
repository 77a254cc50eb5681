package upstream

import (
	"context"
	"net/http"
)

// SuggestRequest carries free text to match against site content
type SuggestRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// Suggestion is one content match returned by the backend
type Suggestion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Suggest calls POST /suggest
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	var resp []Suggestion
	if err := c.doJSON(ctx, http.MethodPost, "/suggest", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ContentItem is one piece of site content
type ContentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Body        string `json:"body,omitempty"`
	Category    string `json:"category,omitempty"`
}

// GetContent calls GET /content/{id}. Responses are served from the
// GET cache within its TTL.
func (c *Client) GetContent(ctx context.Context, contentID string) (*ContentItem, error) {
	var resp ContentItem
	if err := c.doJSON(ctx, http.MethodGet, "/content/"+contentID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ContactRequest forwards a contact form submission
type ContactRequest struct {
	Name         string `json:"nome"`
	Email        string `json:"email"`
	Message      string `json:"mensagem"`
	SuggestionID string `json:"suggestion_id,omitempty"`
}

// SubmitContact calls POST /contact
func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/contact", req, nil)
}

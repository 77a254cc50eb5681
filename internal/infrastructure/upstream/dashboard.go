package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hall-dev/halldev-go/internal/domain/entities/leads"
)

// LeadsResponse is the backend's lead listing. Stats may be absent, in
// which case the dashboard computes its own.
type LeadsResponse struct {
	Leads      []leads.Lead `json:"leads"`
	Stats      *leads.Stats `json:"stats,omitempty"`
	TotalLeads int          `json:"total_leads"`
}

// GetLeads calls GET /dashboard/leads
func (c *Client) GetLeads(ctx context.Context, status string, limit int) (*LeadsResponse, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	path := "/dashboard/leads"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp LeadsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateLeadStatus calls PUT /dashboard/leads/{sessionId}/status
func (c *Client) UpdateLeadStatus(ctx context.Context, sessionID string, status leads.Status) error {
	body := map[string]string{"status": string(status)}
	return c.doJSON(ctx, http.MethodPut, "/dashboard/leads/"+sessionID+"/status", body, nil)
}

// SummariesResponse is the backend's conversation summary listing
type SummariesResponse struct {
	Summaries []leads.ConversationSummary `json:"summaries"`
}

// GetConversationSummaries calls GET /dashboard/conversation-summaries
func (c *Client) GetConversationSummaries(ctx context.Context, limit int) (*SummariesResponse, error) {
	path := fmt.Sprintf("/dashboard/conversation-summaries?limit=%d", limit)
	var resp SummariesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotificationsResponse is the backend's notification listing
type NotificationsResponse struct {
	Notifications []leads.Notification `json:"notifications"`
	Total         int                  `json:"total"`
}

// GetNotifications calls GET /dashboard/notifications
func (c *Client) GetNotifications(ctx context.Context) (*NotificationsResponse, error) {
	var resp NotificationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkNotificationRead calls PUT /dashboard/notifications/{id}/read
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.doJSON(ctx, http.MethodPut, "/dashboard/notifications/"+notificationID+"/read", nil, nil)
}

// StatsResponse wraps the backend's aggregate stats
type StatsResponse struct {
	Database leads.Stats `json:"database"`
}

// GetStats calls GET /dashboard/stats
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

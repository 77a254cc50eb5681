// Package leads provides domain entities for the admin lead dashboard:
// leads, conversation summaries, notifications, and aggregate stats.
package leads

import "time"

// Status is the lead pipeline stage
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// ValidStatus reports whether s is a known pipeline stage
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost:
		return true
	}
	return false
}

// Lead is one captured lead as delivered by the assistant backend
type Lead struct {
	SessionID string  `json:"session_id"`
	Name      string  `json:"name,omitempty"`
	Email     string  `json:"email,omitempty"`
	Company   string  `json:"company,omitempty"`
	Role      string  `json:"role,omitempty"`
	Status    Status  `json:"status"`
	Score     float64 `json:"qualification_score"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// HasContact reports whether the lead captured any way to reach the visitor
func (l Lead) HasContact() bool {
	return l.Email != "" || l.Name != ""
}

// DisplayScore scales fractional scores for presentation. Backends have
// delivered both 0-1 and 0-100 ranges; values below 1 are fractions.
func (l Lead) DisplayScore() float64 {
	if l.Score > 0 && l.Score < 1 {
		return l.Score * 100
	}
	return l.Score
}

// ConversationSummary is the dashboard row for one chat conversation
type ConversationSummary struct {
	SessionID    string `json:"session_id"`
	Summary      string `json:"summary,omitempty"`
	MessageCount int    `json:"message_count"`
	HasContact   bool   `json:"has_contact"`
	StartedAt    string `json:"started_at,omitempty"`
	LastActivity string `json:"last_activity,omitempty"`
}

// ConversationDetail is the full transcript view for one conversation
type ConversationDetail struct {
	SessionID string                `json:"session_id"`
	Messages  []ConversationMessage `json:"messages"`
	Summary   string                `json:"summary,omitempty"`
	Lead      *Lead                 `json:"lead,omitempty"`
}

// ConversationMessage is one transcript entry in a conversation detail
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Notification is one dashboard notification
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Stats is the aggregate view shown at the top of the dashboard
type Stats struct {
	TotalLeads          int            `json:"total_leads"`
	LeadsByStatus       map[Status]int `json:"leads_by_status"`
	TotalConversations  int            `json:"total_conversations"`
	UnreadNotifications int            `json:"unread_notifications"`
}

// ComputeStats derives stats locally from already loaded rows. Used when
// the backend response omits its stats block.
func ComputeStats(ls []Lead, summaries []ConversationSummary, notifications []Notification) Stats {
	stats := Stats{
		TotalLeads:         len(ls),
		LeadsByStatus:      make(map[Status]int),
		TotalConversations: len(summaries),
	}
	for _, l := range ls {
		stats.LeadsByStatus[l.Status]++
	}
	for _, n := range notifications {
		if !n.Read {
			stats.UnreadNotifications++
		}
	}
	return stats
}

// Filter is the dashboard's current filter selection
type Filter struct {
	Query      string  `json:"query"`      // Free text across name/email/company/role
	Status     *Status `json:"status"`     // nil means all statuses
	HasContact *bool   `json:"hasContact"` // nil means both
	Page       int     `json:"page"`       // 1-based
}

// DashboardEvent is a push notification to connected admin dashboards
type DashboardEvent struct {
	Type      string    `json:"type"` // "new_lead", "unread_count", "lead_updated"
	SessionID string    `json:"sessionId,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

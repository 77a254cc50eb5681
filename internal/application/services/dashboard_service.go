package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hall-dev/halldev-go/internal/domain/entities/leads"
	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

// DashboardServiceConfig carries the dashboard tunables
type DashboardServiceConfig struct {
	LeadLimit         int
	ConversationLimit int
	PageSize          int
}

// DashboardService aggregates the admin dashboard's data and holds its
// filter state
type DashboardService struct {
	mu            sync.RWMutex
	leads         []leads.Lead
	summaries     []leads.ConversationSummary
	notifications []leads.Notification
	stats         leads.Stats
	filter        leads.Filter
	loaded        bool

	client      *upstream.Client
	broadcaster *messaging.SSEBroadcaster
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
	config      DashboardServiceConfig
}

// NewDashboardService creates the dashboard service
func NewDashboardService(client *upstream.Client, broadcaster *messaging.SSEBroadcaster, logger *logging.ChanneledLogger, perf *performance.Tracker, config DashboardServiceConfig) *DashboardService {
	return &DashboardService{
		client:      client,
		broadcaster: broadcaster,
		logger:      logger,
		perf:        perf,
		config:      config,
		filter:      leads.Filter{Page: 1},
	}
}

// View is the dashboard state handed to the presentation layer
type View struct {
	Leads         []leads.Lead                `json:"leads"`
	TotalLeads    int                         `json:"totalLeads"`
	TotalPages    int                         `json:"totalPages"`
	Page          int                         `json:"page"`
	Conversations []leads.ConversationSummary `json:"conversations"`
	Notifications []leads.Notification        `json:"notifications"`
	Stats         leads.Stats                 `json:"stats"`
	Filter        leads.Filter                `json:"filter"`
}

// Load fetches leads, conversation summaries, notifications, and stats
// concurrently. A failed stats call falls back to locally computed
// numbers; the other three failures surface.
func (s *DashboardService) Load(ctx context.Context) (*View, error) {
	marker := s.perf.StartOperation("dashboard:load")
	defer marker.Complete()

	var (
		wg            sync.WaitGroup
		leadsResp     *upstream.LeadsResponse
		summariesResp *upstream.SummariesResponse
		notifResp     *upstream.NotificationsResponse
		statsResp     *upstream.StatsResponse
		leadsErr      error
		summariesErr  error
		notifErr      error
		statsErr      error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		leadsResp, leadsErr = s.client.GetLeads(ctx, "", s.config.LeadLimit)
	}()
	go func() {
		defer wg.Done()
		summariesResp, summariesErr = s.client.GetConversationSummaries(ctx, s.config.ConversationLimit)
	}()
	go func() {
		defer wg.Done()
		notifResp, notifErr = s.client.GetNotifications(ctx)
	}()
	go func() {
		defer wg.Done()
		statsResp, statsErr = s.client.GetStats(ctx)
	}()
	wg.Wait()

	if leadsErr != nil {
		marker.SetError(leadsErr)
		return nil, fmt.Errorf("failed to load leads: %w", leadsErr)
	}
	if summariesErr != nil {
		marker.SetError(summariesErr)
		return nil, fmt.Errorf("failed to load conversation summaries: %w", summariesErr)
	}
	if notifErr != nil {
		marker.SetError(notifErr)
		return nil, fmt.Errorf("failed to load notifications: %w", notifErr)
	}

	s.mu.Lock()
	s.leads = leadsResp.Leads
	s.summaries = summariesResp.Summaries
	s.notifications = notifResp.Notifications
	s.loaded = true

	switch {
	case statsErr == nil:
		s.stats = statsResp.Database
	case leadsResp.Stats != nil:
		s.stats = *leadsResp.Stats
	default:
		s.stats = leads.ComputeStats(s.leads, s.summaries, s.notifications)
		s.logger.Dashboard().Debug("Stats endpoint unavailable, computed locally", "error", statsErr.Error())
	}
	s.mu.Unlock()

	marker.SetSuccess(true)
	s.logger.Dashboard().Info("Dashboard loaded",
		"leads", len(leadsResp.Leads),
		"conversations", len(summariesResp.Summaries),
		"notifications", len(notifResp.Notifications))

	return s.view(), nil
}

// SetFilter replaces the filter selection. Any change resets paging to
// the first page.
func (s *DashboardService) SetFilter(query string, status *leads.Status, hasContact *bool) *View {
	s.mu.Lock()
	s.filter = leads.Filter{
		Query:      query,
		Status:     status,
		HasContact: hasContact,
		Page:       1,
	}
	s.mu.Unlock()
	return s.view()
}

// SetPage moves to a page within the current filter
func (s *DashboardService) SetPage(page int) *View {
	s.mu.Lock()
	if page < 1 {
		page = 1
	}
	s.filter.Page = page
	s.mu.Unlock()
	return s.view()
}

// CurrentView returns the dashboard as currently filtered
func (s *DashboardService) CurrentView() *View {
	return s.view()
}

// view assembles the filtered, paged dashboard state
func (s *DashboardService) view() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := s.filteredLocked()

	pageSize := s.config.PageSize
	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page := s.filter.Page
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	pageLeads := make([]leads.Lead, end-start)
	copy(pageLeads, filtered[start:end])

	notifications := make([]leads.Notification, len(s.notifications))
	copy(notifications, s.notifications)

	return &View{
		Leads:         pageLeads,
		TotalLeads:    len(filtered),
		TotalPages:    totalPages,
		Page:          page,
		Conversations: s.sortedConversationsLocked(),
		Notifications: notifications,
		Stats:         s.stats,
		Filter:        s.filter,
	}
}

// filteredLocked applies the free-text, status, and has-contact
// filters. Caller holds the lock.
func (s *DashboardService) filteredLocked() []leads.Lead {
	query := strings.ToLower(strings.TrimSpace(s.filter.Query))
	result := make([]leads.Lead, 0, len(s.leads))

	for _, l := range s.leads {
		if s.filter.Status != nil && l.Status != *s.filter.Status {
			continue
		}
		if s.filter.HasContact != nil && l.HasContact() != *s.filter.HasContact {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(l.Name + " " + l.Email + " " + l.Company + " " + l.Role)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		result = append(result, l)
	}
	return result
}

// sortedConversationsLocked orders conversations with contact info
// first, then by recency. Caller holds the lock.
func (s *DashboardService) sortedConversationsLocked() []leads.ConversationSummary {
	sorted := make([]leads.ConversationSummary, len(s.summaries))
	copy(sorted, s.summaries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].HasContact != sorted[j].HasContact {
			return sorted[i].HasContact
		}
		return sorted[i].LastActivity > sorted[j].LastActivity
	})
	return sorted
}

// UpdateLeadStatus applies a status change optimistically and rolls the
// whole lead list back from a snapshot if the backend rejects it. One
// attempt, no retry loop on top of the transport's own.
func (s *DashboardService) UpdateLeadStatus(ctx context.Context, sessionID string, status leads.Status) (*View, error) {
	marker := s.perf.StartOperation("dashboard:update_lead_status")
	defer marker.Complete()

	if !leads.ValidStatus(status) {
		err := fmt.Errorf("unknown lead status: %s", status)
		marker.SetError(err)
		return s.view(), err
	}

	s.mu.Lock()
	snapshot := make([]leads.Lead, len(s.leads))
	copy(snapshot, s.leads)

	found := false
	for i := range s.leads {
		if s.leads[i].SessionID == sessionID {
			s.leads[i].Status = status
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		err := fmt.Errorf("lead not found: %s", sessionID)
		marker.SetError(err)
		return s.view(), err
	}

	if err := s.client.UpdateLeadStatus(ctx, sessionID, status); err != nil {
		s.mu.Lock()
		s.leads = snapshot
		s.mu.Unlock()
		marker.SetError(err)
		s.logger.Dashboard().Warn("Lead status update rejected, rolled back", "sessionId", sessionID, "error", err.Error())
		return s.view(), err
	}

	s.mu.Lock()
	s.stats = leads.ComputeStats(s.leads, s.summaries, s.notifications)
	s.mu.Unlock()

	marker.SetSuccess(true)
	s.broadcaster.BroadcastDashboardEvent(leads.DashboardEvent{
		Type:      "lead_updated",
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
	return s.view(), nil
}

// MarkNotificationRead marks one notification read. Only the matching
// notification changes, and only after the backend confirms.
func (s *DashboardService) MarkNotificationRead(ctx context.Context, notificationID string) (*View, error) {
	marker := s.perf.StartOperation("dashboard:mark_notification_read")
	defer marker.Complete()

	if err := s.client.MarkNotificationRead(ctx, notificationID); err != nil {
		marker.SetError(err)
		return s.view(), err
	}

	s.mu.Lock()
	unread := 0
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			s.notifications[i].Read = true
		}
		if !s.notifications[i].Read {
			unread++
		}
	}
	s.stats.UnreadNotifications = unread
	s.mu.Unlock()

	marker.SetSuccess(true)
	s.broadcaster.BroadcastDashboardEvent(leads.DashboardEvent{
		Type:      "unread_count",
		Count:     unread,
		Timestamp: time.Now().UTC(),
	})
	return s.view(), nil
}

// ConversationDetail fetches the full transcript for a conversation and
// merges it with the locally held summary row. When the fetch fails the
// summary row alone is returned.
func (s *DashboardService) ConversationDetail(ctx context.Context, sessionID string) (*leads.ConversationDetail, error) {
	marker := s.perf.StartOperation("dashboard:conversation_detail")
	defer marker.Complete()

	s.mu.RLock()
	var summary *leads.ConversationSummary
	for i := range s.summaries {
		if s.summaries[i].SessionID == sessionID {
			row := s.summaries[i]
			summary = &row
			break
		}
	}
	var lead *leads.Lead
	for i := range s.leads {
		if s.leads[i].SessionID == sessionID {
			row := s.leads[i]
			lead = &row
			break
		}
	}
	s.mu.RUnlock()

	detail := &leads.ConversationDetail{SessionID: sessionID, Lead: lead}
	if summary != nil {
		detail.Summary = summary.Summary
	}

	conv, err := s.client.GetConversation(ctx, sessionID)
	if err != nil {
		if summary == nil {
			marker.SetError(err)
			return nil, err
		}
		// Fall back to what the summary row already told us.
		s.logger.Dashboard().Debug("Conversation fetch failed, serving summary row", "sessionId", sessionID, "error", err.Error())
		marker.SetSuccess(true)
		return detail, nil
	}

	detail.Messages = make([]leads.ConversationMessage, len(conv.Messages))
	for i, m := range conv.Messages {
		detail.Messages[i] = leads.ConversationMessage{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
	}
	if conv.Summary != "" {
		detail.Summary = conv.Summary
	}

	marker.SetSuccess(true)
	return detail, nil
}

// NotifyNewLead pushes a new-lead event to connected dashboards
func (s *DashboardService) NotifyNewLead(sessionID string) {
	s.broadcaster.BroadcastDashboardEvent(leads.DashboardEvent{
		Type:      "new_lead",
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
}

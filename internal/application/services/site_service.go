package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hall-dev/halldev-go/internal/infrastructure/email"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/persistence/localstate"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
)

// SiteService covers the presentational shell's server-side needs:
// content lookup, contact forwarding, and the intro-shown flag.
type SiteService struct {
	client *upstream.Client
	store  *localstate.Store
	email  email.Service // nil when outbound email is not configured
	logger *logging.ChanneledLogger
	perf   *performance.Tracker
}

// NewSiteService creates the site service
func NewSiteService(client *upstream.Client, store *localstate.Store, emailService email.Service, logger *logging.ChanneledLogger, perf *performance.Tracker) *SiteService {
	return &SiteService{
		client: client,
		store:  store,
		email:  emailService,
		logger: logger,
		perf:   perf,
	}
}

// Content fetches one content item; repeat lookups within the cache TTL
// are served without a network call
func (s *SiteService) Content(ctx context.Context, contentID string) (*upstream.ContentItem, error) {
	marker := s.perf.StartOperation("site:content")
	defer marker.Complete()

	item, err := s.client.GetContent(ctx, contentID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	marker.SetSuccess(true)
	return item, nil
}

// SubmitContact forwards a contact form submission and sends a
// best-effort confirmation email. The confirmation failing never fails
// the submission.
func (s *SiteService) SubmitContact(ctx context.Context, req upstream.ContactRequest) error {
	marker := s.perf.StartOperation("site:contact")
	defer marker.Complete()

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Email == "" || req.Message == "" {
		err := fmt.Errorf("email and message are required")
		marker.SetError(err)
		return err
	}

	if err := s.client.SubmitContact(ctx, req); err != nil {
		marker.SetError(err)
		return err
	}

	if s.email != nil {
		if err := s.email.SendContactConfirmation(req.Email, req.Name, req.Message); err != nil {
			s.logger.Email().Warn("Contact confirmation email failed", "error", err.Error())
		}
	}

	marker.SetSuccess(true)
	s.logger.System().Info("Contact submission forwarded", "hasSuggestion", req.SuggestionID != "")
	return nil
}

// IntroShown reports whether the client has already seen the intro
// animation
func (s *SiteService) IntroShown(ctx context.Context, clientID string) (bool, error) {
	return s.store.GetFlag(ctx, clientID, localstate.FlagIntroShown)
}

// MarkIntroShown records that the intro animation has played for this
// client
func (s *SiteService) MarkIntroShown(ctx context.Context, clientID string) error {
	return s.store.SetFlag(ctx, clientID, localstate.FlagIntroShown, true)
}

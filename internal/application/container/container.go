// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/hall-dev/halldev-go/internal/application/services"
	"github.com/hall-dev/halldev-go/internal/infrastructure/aai"
	"github.com/hall-dev/halldev-go/internal/infrastructure/caching/stores"
	"github.com/hall-dev/halldev-go/internal/infrastructure/email"
	"github.com/hall-dev/halldev-go/internal/infrastructure/media"
	"github.com/hall-dev/halldev-go/internal/infrastructure/messaging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/logging"
	"github.com/hall-dev/halldev-go/internal/infrastructure/observability/performance"
	"github.com/hall-dev/halldev-go/internal/infrastructure/persistence/localstate"
	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
	"github.com/hall-dev/halldev-go/internal/infrastructure/upstream"
	"github.com/hall-dev/halldev-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services
	ChatService       *services.ChatService
	DashboardService  *services.DashboardService
	PlaygroundService *services.PlaygroundService
	SuggestionService *services.SuggestionService
	SiteService       *services.SiteService
	AdminService      *services.AdminService

	// Infrastructure
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
	ResponseCache  *stores.ResponseStore
	Upstream       *upstream.Client
	StateDB        *localstate.DB
	StateStore     *localstate.Store
	ChatHub        *messaging.ChatHub
	SSEBroadcaster *messaging.SSEBroadcaster
	EmailService   email.Service // nil when not configured
	ImageProcessor *media.ImageProcessor
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	perfTracker := performance.NewTracker(nil)

	responseCache := stores.NewResponseStore(config.ResponseCacheTTL, config.ResponseCacheMaxEntries)
	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL:           config.UpstreamBaseURL,
		RequestTimeout:    config.UpstreamRequestTimeout,
		MaxRetries:        config.MaxRetries,
		RetryBaseDelay:    config.RetryBaseDelay,
		BackoffMultiplier: config.RetryBackoffMultiplier,
	}, responseCache, logger)

	stateDB, err := localstate.NewConnection(config.LocalStateDriver, config.LocalStateDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := stateDB.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	stateStore := localstate.NewStore(stateDB)

	chatHub := messaging.NewChatHub(logger)
	sseBroadcaster := messaging.NewSSEBroadcaster(config.MaxSSEConnections, logger)

	var emailService email.Service
	if config.ResendAPIKey != "" {
		emailService, err = email.NewService(config.ResendAPIKey, config.EmailFrom, config.EmailFromName)
		if err != nil {
			return nil, fmt.Errorf("failed to create email service: %w", err)
		}
	} else {
		logger.Email().Warn("Resend API key not configured, outbound email disabled")
	}

	jwtSecret := config.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = security.GenerateSecureKey(64)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		logger.Auth().Warn("JWT secret not configured, using an ephemeral key; admin sessions will not survive a restart")
	}

	summarizer := aai.NewSummarizer(config.AAIAPIKey, logger)
	imageProcessor := media.NewImageProcessor(config.MediaRoot, config.MediaMaxWidth, config.MediaWebPQuality)

	chatService := services.NewChatService(upstreamClient, chatHub, emailService, logger, perfTracker, services.ChatServiceConfig{
		PollInterval:    config.InactivityPollInterval,
		NoticeClearance: config.ExpiredNoticeClearance,
		MaxSessions:     config.MaxChatSessions,
	})
	dashboardService := services.NewDashboardService(upstreamClient, sseBroadcaster, logger, perfTracker, services.DashboardServiceConfig{
		LeadLimit:         config.DashboardLeadLimit,
		ConversationLimit: config.DashboardConversationLimit,
		PageSize:          config.DashboardPageSize,
	})

	// Each new chat session is a prospective lead on the dashboard.
	chatService.OnSessionStarted(dashboardService.NotifyNewLead)

	return &Container{
		ChatService:      chatService,
		DashboardService: dashboardService,
		PlaygroundService: services.NewPlaygroundService(upstreamClient, stateStore, summarizer, logger, perfTracker),
		SuggestionService: services.NewSuggestionService(upstreamClient, config.SuggestDebounce, logger),
		SiteService:       services.NewSiteService(upstreamClient, stateStore, emailService, logger, perfTracker),
		AdminService: services.NewAdminService(stateStore, logger, services.AdminServiceConfig{
			TokenHash:  config.AdminTokenHash,
			JWTSecret:  jwtSecret,
			SessionTTL: config.AdminSessionTTL,
		}),

		Logger:         logger,
		PerfTracker:    perfTracker,
		ResponseCache:  responseCache,
		Upstream:       upstreamClient,
		StateDB:        stateDB,
		StateStore:     stateStore,
		ChatHub:        chatHub,
		SSEBroadcaster: sseBroadcaster,
		EmailService:   emailService,
		ImageProcessor: imageProcessor,
	}, nil
}

// Shutdown releases container-held resources
func (c *Container) Shutdown() {
	c.ChatService.Shutdown()
	if err := c.StateDB.Close(); err != nil {
		c.Logger.Shutdown().Error("Failed to close state store", "error", err.Error())
	}
	c.Logger.Close()
}

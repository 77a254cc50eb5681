// Package routes wires HTTP routes to their handlers.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/container"
	"github.com/hall-dev/halldev-go/internal/presentation/http/handlers"
	"github.com/hall-dev/halldev-go/internal/presentation/http/middleware"
	"github.com/hall-dev/halldev-go/pkg/config"
)

// SetupRoutes builds the gin engine with all middleware and routes
func SetupRoutes(c *container.Container) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ClientIDMiddleware())

	chatHandlers := handlers.NewChatHandlers(c.ChatService, c.Logger, c.PerfTracker)
	dashboardHandlers := handlers.NewDashboardHandlers(c.DashboardService, c.SSEBroadcaster, c.Logger, c.PerfTracker)
	playgroundHandlers := handlers.NewPlaygroundHandlers(c.PlaygroundService, c.Logger, c.PerfTracker)
	siteHandlers := handlers.NewSiteHandlers(c.SiteService, c.SuggestionService, c.Logger, c.PerfTracker)
	adminHandlers := handlers.NewAdminHandlers(c.AdminService, config.AdminSessionTTL, c.Logger)
	mediaHandlers := handlers.NewMediaHandlers(c.ImageProcessor, c.Logger)
	systemHandlers := handlers.NewSystemHandlers(c.Logger, c.PerfTracker)

	api := router.Group("/api/v1")
	{
		api.GET("/health", systemHandlers.GetHealth)

		chat := api.Group("/chat")
		{
			chat.POST("/start", chatHandlers.PostStart)
			chat.POST("/message", chatHandlers.PostMessage)
			chat.POST("/retry", chatHandlers.PostRetry)
			chat.POST("/end", chatHandlers.PostEnd)
			chat.GET("/session", chatHandlers.GetSession)
			chat.POST("/save", chatHandlers.PostSave)
			chat.POST("/email", chatHandlers.PostEmail)
			chat.POST("/clear-error", chatHandlers.PostClearError)
			chat.GET("/ws", chatHandlers.GetWebSocket(c.ChatHub))
		}

		playground := api.Group("/playground")
		{
			playground.GET("/registration", playgroundHandlers.GetRegistration)
			playground.POST("/register", playgroundHandlers.PostRegister)
			playground.POST("/transcribe", playgroundHandlers.PostTranscribe)
			playground.POST("/summarize", playgroundHandlers.PostSummarize)
			playground.GET("/current", playgroundHandlers.GetCurrent)
			playground.GET("/segment", playgroundHandlers.GetSegment)
			playground.GET("/keywords", playgroundHandlers.GetKeywords)
			playground.POST("/export", playgroundHandlers.PostExport)
		}

		api.POST("/suggest", siteHandlers.PostSuggest)
		api.GET("/content/:id", siteHandlers.GetContent)
		api.POST("/contact", siteHandlers.PostContact)
		api.GET("/site/intro", siteHandlers.GetIntro)
		api.POST("/site/intro", siteHandlers.PostIntro)

		admin := api.Group("/admin")
		{
			admin.POST("/session", adminHandlers.PostSession)
			admin.DELETE("/session", adminHandlers.DeleteSession)
		}

		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.AdminAuthMiddleware(c.AdminService))
		{
			dashboard.GET("", dashboardHandlers.GetDashboard)
			dashboard.PUT("/filter", dashboardHandlers.PutFilter)
			dashboard.PUT("/page", dashboardHandlers.PutPage)
			dashboard.PUT("/leads/:sessionId/status", dashboardHandlers.PutLeadStatus)
			dashboard.PUT("/notifications/:id/read", dashboardHandlers.PutNotificationRead)
			dashboard.GET("/conversations/:sessionId", dashboardHandlers.GetConversation)
			dashboard.GET("/events", dashboardHandlers.GetEvents)
		}

		system := api.Group("/system")
		system.Use(middleware.AdminAuthMiddleware(c.AdminService))
		{
			system.GET("/log-levels", systemHandlers.GetLogLevels)
			system.POST("/log-levels", systemHandlers.PostLogLevel)
			system.GET("/performance", systemHandlers.GetPerformance)
		}
	}

	router.GET("/media/images/:name", mediaHandlers.GetImage)

	return router
}

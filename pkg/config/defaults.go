// Package config provides centralized default values for the /-HALL-DEV site engine
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%f (default: %f)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Upstream assistant API
	UpstreamBaseURL        string
	UpstreamRequestTimeout time.Duration
	MaxRetries             int
	RetryBaseDelay         time.Duration
	RetryBackoffMultiplier float64

	// Response cache
	ResponseCacheTTL        time.Duration
	ResponseCacheMaxEntries int

	// Chat
	InactivityPollInterval time.Duration
	ExpiredNoticeClearance time.Duration
	MaxChatSessions        int

	// Suggestions
	SuggestDebounce time.Duration
	ContentCacheTTL time.Duration

	// Dashboard
	DashboardLeadLimit         int
	DashboardConversationLimit int
	DashboardPageSize          int

	// Local state store
	LocalStateDriver string
	LocalStateDSN    string

	// Admin access
	AdminTokenHash  string
	JWTSecret       string
	AdminSessionTTL time.Duration

	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string

	// AssemblyAI fallback summarizer
	AAIAPIKey string

	// SSE Configuration
	SSEHeartbeatInterval time.Duration
	MaxSSEConnections    int

	// Media
	MediaRoot        string
	MediaMaxWidth    int
	MediaWebPQuality float32
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Upstream assistant API
	UpstreamBaseURL = getEnvString("UPSTREAM_BASE_URL", "http://localhost:8000")
	UpstreamRequestTimeout = getEnvDuration("UPSTREAM_REQUEST_TIMEOUT", 30*time.Second)
	MaxRetries = getEnvInt("UPSTREAM_MAX_RETRIES", 3)
	RetryBaseDelay = getEnvDuration("UPSTREAM_RETRY_BASE_DELAY", time.Second)
	RetryBackoffMultiplier = getEnvFloat("UPSTREAM_RETRY_BACKOFF_MULTIPLIER", 2.0)

	// Response cache
	ResponseCacheTTL = getEnvDuration("RESPONSE_CACHE_TTL", 5*time.Minute)
	ResponseCacheMaxEntries = getEnvInt("RESPONSE_CACHE_MAX_ENTRIES", 50)

	// Chat
	InactivityPollInterval = getEnvDuration("CHAT_INACTIVITY_POLL_INTERVAL", 30*time.Second)
	ExpiredNoticeClearance = getEnvDuration("CHAT_EXPIRED_NOTICE_CLEARANCE", 3*time.Second)
	MaxChatSessions = getEnvInt("MAX_CHAT_SESSIONS", 5000)

	// Suggestions
	SuggestDebounce = getEnvDuration("SUGGEST_DEBOUNCE", 500*time.Millisecond)
	ContentCacheTTL = getEnvDuration("CONTENT_CACHE_TTL", 10*time.Minute)

	// Dashboard
	DashboardLeadLimit = getEnvInt("DASHBOARD_LEAD_LIMIT", 100)
	DashboardConversationLimit = getEnvInt("DASHBOARD_CONVERSATION_LIMIT", 50)
	DashboardPageSize = getEnvInt("DASHBOARD_PAGE_SIZE", 10)

	// Local state store
	LocalStateDriver = getEnvString("LOCAL_STATE_DRIVER", "sqlite3")
	LocalStateDSN = getEnvString("LOCAL_STATE_DSN", "halldev-state.db")

	// Admin access
	AdminTokenHash = getEnvString("ADMIN_TOKEN_HASH", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminSessionTTL = getEnvDuration("ADMIN_SESSION_TTL", 12*time.Hour)

	// Email (Resend)
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@hall-dev.com")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "/-HALL-DEV")

	// AssemblyAI fallback summarizer
	AAIAPIKey = getEnvString("AAI_API_KEY", "")

	// SSE Configuration
	SSEHeartbeatInterval = getEnvDuration("SSE_HEARTBEAT_INTERVAL", 30*time.Second)
	MaxSSEConnections = getEnvInt("MAX_SSE_CONNECTIONS", 100)

	// Media
	MediaRoot = getEnvString("MEDIA_ROOT", "web/media")
	MediaMaxWidth = getEnvInt("MEDIA_MAX_WIDTH", 1920)
	MediaWebPQuality = float32(getEnvFloat("MEDIA_WEBP_QUALITY", 82))
}

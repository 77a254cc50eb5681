package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/infrastructure/security"
)

const (
	clientIDKey    = "clientId"
	clientIDHeader = "X-Client-ID"
	clientIDCookie = "halldev_client"
)

// ClientIDMiddleware resolves the browser client identity from header or
// cookie, minting one on first contact. Every widget and playground
// session hangs off this id.
func ClientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(clientIDHeader)
		if clientID == "" {
			clientID, _ = c.Cookie(clientIDCookie)
		}
		if clientID == "" {
			clientID = security.GenerateULID()
			c.SetCookie(clientIDCookie, clientID, 0, "/", "", false, true)
		}
		c.Set(clientIDKey, clientID)
		c.Next()
	}
}

// GetClientID returns the resolved client id for the request
func GetClientID(c *gin.Context) string {
	if id, exists := c.Get(clientIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

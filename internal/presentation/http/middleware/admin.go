package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hall-dev/halldev-go/internal/application/services"
)

const adminSessionCookie = "halldev_admin"

// AdminAuthMiddleware guards dashboard routes behind a valid admin
// session JWT, presented as a bearer token or session cookie.
func AdminAuthMiddleware(adminService *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(adminSessionCookie)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin session required"})
			return
		}

		if _, err := adminService.Validate(c.Request.Context(), token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin session"})
			return
		}
		c.Next()
	}
}

// AdminSessionCookie is the cookie name handlers use when issuing a session
func AdminSessionCookie() string {
	return adminSessionCookie
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

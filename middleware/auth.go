// Package middleware provides the gin middleware chain: session auth,
// rate limiting and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"ghostlore.app/cache"
	"ghostlore.app/models"
)

// ContextUserIDKey is the gin context key carrying the authenticated user id.
const ContextUserIDKey = "userID"

// RequireAuth validates the bearer session token against the cache and
// rejects the request when no valid session exists.
func RequireAuth(client *cache.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := resolveSession(c, client)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "missing or invalid session token",
			})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth resolves the session when a token is present but never
// rejects. Downstream middleware uses the identity for response-cache
// scoping and rate-limit keys.
func OptionalAuth(client *cache.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := resolveSession(c, client); ok {
			c.Set(ContextUserIDKey, userID)
		}
		c.Next()
	}
}

func resolveSession(c *gin.Context, client *cache.Client) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", false
	}

	var session models.Session
	found, _ := client.Get(c.Request.Context(), cache.SessionKey(token), &session)
	if !found {
		return "", false
	}

	return session.UserID, true
}

// CallerIdentity returns the rate-limit identity for the request:
// authenticated user id when available, else the derived client address.
func CallerIdentity(c *gin.Context) string {
	if userID := c.GetString(ContextUserIDKey); userID != "" {
		return "user:" + userID
	}
	return c.ClientIP()
}

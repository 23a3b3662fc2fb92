package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"survey-app-server/internal/utils"
)

const userIDKey = "userID"

// TokenVerifier resolves an access token to the id of its user.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		userID, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			log.WithField("path", c.Request.URL.Path).Debugf("rejected access token: %v", err)
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(userIDKey, userID)

		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// GetUserIDFromContext returns the user id bound by AuthMiddleware.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

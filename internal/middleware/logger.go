package middleware

import (
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"survey-app-server/internal/utils"
)

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if userID, ok := GetUserIDFromContext(c); ok {
			entry = entry.WithField("user", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

// Recovery turns a panic into a 500 response and dumps the recovered value.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithField("path", c.Request.URL.Path).Errorf("panic recovered: %s", spew.Sdump(recovered))
		utils.InternalServerError(c, "Internal server error")
		c.Abort()
	})
}

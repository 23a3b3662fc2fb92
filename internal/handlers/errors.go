package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"survey-app-server/internal/services"
	"survey-app-server/internal/utils"
)

// HandleError maps a service error to its status code. Unexpected errors are
// logged and reported as 500 with a generic message.
func HandleError(c *gin.Context, err error) {
	entry := log.WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})

	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		entry.WithError(err).Error("request failed")
		utils.InternalServerError(c, "Internal server error")
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.Unauthorized(c, svcErr.Message)
	case errors.Is(err, services.ErrForbidden):
		utils.Forbidden(c, svcErr.Message)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, svcErr.Message)
	case errors.Is(err, services.ErrConflict):
		utils.Conflict(c, svcErr.Message)
	case errors.Is(err, services.ErrUploadFailed):
		entry.WithError(err).Warn("image upload failed")
		utils.BadGateway(c, svcErr.Message)
	default:
		entry.WithError(err).Error("request failed")
		utils.InternalServerError(c, "Internal server error")
	}
}

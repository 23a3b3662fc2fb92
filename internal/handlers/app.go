package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProtectedRoot confirms that the caller's access token was accepted.
func ProtectedRoot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Accessed resource", "userId": userID})
}

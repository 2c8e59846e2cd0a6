package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/utils"
)

// respondError maps an engine error onto its HTTP status. Unclassified errors are logged and
// reported as a generic 500.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireUser returns the authenticated user's id, answering 401 when there is none.
func requireUser(c *gin.Context) (uint, bool) {
	user := utils.GetUser(c)
	if user == nil || user.UserID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return 0, false
	}
	return user.UserID, true
}

func requireID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseIDParam(c, name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

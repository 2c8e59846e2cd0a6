package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/controllers"
)

func SetupActionRoutes(protected *gin.RouterGroup, actionController *controllers.ActionController) {
	protected.POST("/actions", actionController.RecordAction)
	protected.DELETE("/resources/:kind/:id", actionController.DeleteResource)
}
